package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/batchfile"
	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/reorder"
)

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <batch-file>",
		Short: "Apply a reorder batch from a YAML or CUE file",
		Long: `Apply one reorder batch read from a YAML or CUE file.

The file names the list kind, the parent global ID and the moves:

  kind: attribute_values
  parent: QXR0cmlidXRlOjc=
  moves:
    - id: QXR0cmlidXRlVmFsdWU6MTI=
      sort_order: -2

Exit codes:
  0 - Batch committed (possibly with no changes)
  1 - Batch rejected or file invalid
  2 - Command error (file or database not reachable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runApply(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	batch, err := batchfile.LoadBatch(path)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidFile, err.Error(), nil, err)
	}
	req, err := batch.Request()
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidFile, err.Error(), nil, err)
	}
	f.VerboseLog("Loaded %d move(s) for %s %s from %s", len(req.Moves), req.Kind, req.Parent, path)

	return runReorder(opts, req, cmd, f)
}

func runReorder(opts *RootOptions, req reorder.Request, cmd *cobra.Command, f *OutputFormatter) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil, err)
	}
	defer s.Close()

	out, err := s.svc.Reorder(commandContext(cmd), req)
	if err != nil {
		return reportServiceError(f, err)
	}
	return f.Success(outcomeView{Kind: req.Kind.String(), Parent: req.Parent, Outcome: out})
}

// NewMoveCommand creates the move command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <kind> <parent> <id>[=<displacement>]...",
		Short: "Apply a reorder batch given on the command line",
		Long: `Apply one reorder batch given as arguments.

The parent may be a primary key or a global ID. Each move is an item
primary key, optionally followed by =<displacement>; a move without a
displacement moves the item one position forward. Moves apply in order.

Examples:
  reorder move attribute_values 7 12=-2 14
  reorder move collection_products Q29sbGVjdGlvbjo1 101=3 --format json`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runMove(opts *RootOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	kind, err := parseKind(args[0])
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgs, err.Error(), nil, err)
	}
	moves, err := parseMoves(kind, args[2:])
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInvalidArgs, err.Error(), nil, err)
	}

	req := reorder.Request{Kind: kind, Parent: parentArg(kind, args[1]), Moves: moves}
	return runReorder(opts, req, cmd, f)
}

// parseMoves parses "<pk>" and "<pk>=<displacement>" arguments.
func parseMoves(kind catalog.Kind, args []string) ([]catalog.MoveInput, error) {
	itemType := kind.Relation().ItemType
	moves := make([]catalog.MoveInput, 0, len(args))
	for _, arg := range args {
		idPart, dispPart, hasDisp := strings.Cut(arg, "=")
		pk, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || pk <= 0 {
			return nil, fmt.Errorf("invalid move %q: id must be a positive integer", arg)
		}
		mv := catalog.MoveInput{ID: catalog.EncodeID(itemType, pk)}
		if hasDisp {
			d, err := strconv.Atoi(dispPart)
			if err != nil {
				return nil, fmt.Errorf("invalid move %q: displacement must be an integer", arg)
			}
			mv.SortOrder = &d
		}
		moves = append(moves, mv)
	}
	return moves, nil
}
