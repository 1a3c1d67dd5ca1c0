package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/catalog"
	"github.com/roach88/reorder/internal/store"
)

// listCommand builds a "<name> <kind> <parent>" command that runs fn with an
// open session.
func listCommand(rootOpts *RootOptions, use, short, long string,
	fn func(s *session, kind catalog.Kind, parent string, cmd *cobra.Command, f *OutputFormatter) error,
) *cobra.Command {
	return &cobra.Command{
		Use:           use + " <kind> <parent>",
		Short:         short,
		Long:          long,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			kind, err := parseKind(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInvalidArgs, err.Error(), nil, err)
			}
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil, err)
			}
			defer s.Close()
			return fn(s, kind, parentArg(kind, args[1]), cmd, f)
		},
	}
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, "show", "Print a list in stored order",
		`Print the members of a list ordered by sort key (nulls last), as the
engine will see them. The parent may be a primary key or a global ID.`,
		func(s *session, kind catalog.Kind, parent string, cmd *cobra.Command, f *OutputFormatter) error {
			ins, err := s.svc.Inspect(commandContext(cmd), kind, parent)
			if err != nil {
				return reportServiceError(f, err)
			}
			return f.Success(newListView(kind, parent, ins.Items))
		})
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, "inspect", "Report null keys, duplicates and gaps of a list",
		`Report the health of a list's stored sort keys: how many are null or
duplicated, and the gaps between neighbouring keys.`,
		func(s *session, kind catalog.Kind, parent string, cmd *cobra.Command, f *OutputFormatter) error {
			ins, err := s.svc.Inspect(commandContext(cmd), kind, parent)
			if err != nil {
				return reportServiceError(f, err)
			}
			return f.Success(inspectView{
				Kind:       kind.String(),
				Parent:     parent,
				Normalized: ins.Stats.Normalized(),
				Stats:      ins.Stats,
			})
		})
}

// NewCompactCommand creates the compact command.
func NewCompactCommand(rootOpts *RootOptions) *cobra.Command {
	return listCommand(rootOpts, "compact", "Renumber a list to 0..n-1",
		`Renumber a list to 0..n-1 in its current order. Only rows whose key
changes are written; a compaction that writes anything is journaled.`,
		func(s *session, kind catalog.Kind, parent string, cmd *cobra.Command, f *OutputFormatter) error {
			out, err := s.svc.Compact(commandContext(cmd), kind, parent)
			if err != nil {
				return reportServiceError(f, err)
			}
			return f.Success(outcomeView{Kind: kind.String(), Parent: parent, Outcome: out})
		})
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var batchID string
	cmd := listCommand(rootOpts, "history", "Print the reorder journal of a list",
		`Print every committed batch of a list in commit order, with its
resolved moves and the keys it wrote. --batch prints a single batch by
its journal id.`,
		func(s *session, kind catalog.Kind, parent string, cmd *cobra.Command, f *OutputFormatter) error {
			ctx := commandContext(cmd)
			if batchID != "" {
				b, err := s.svc.Batch(ctx, kind, parent, batchID)
				if err != nil {
					return reportServiceError(f, err)
				}
				return f.Success(newHistoryView(kind, parent, []store.Batch{b}))
			}
			batches, err := s.svc.History(ctx, kind, parent)
			if err != nil {
				return reportServiceError(f, err)
			}
			return f.Success(newHistoryView(kind, parent, batches))
		})
	cmd.Flags().StringVar(&batchID, "batch", "", "print only the batch with this journal id")
	return cmd
}
