package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/batchfile"
	"github.com/roach88/reorder/internal/catalog"
)

// SeedResult reports a seeded list.
type SeedResult struct {
	Kind   string `json:"kind"`
	Parent string `json:"parent"`
	Items  int    `json:"items"`
}

func (r SeedResult) String() string {
	return fmt.Sprintf("Seeded %s %s with %d item(s)", r.Kind, r.Parent, r.Items)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture-file>",
		Short: "Create a list from a YAML or CUE fixture",
		Long: `Create a list owner and append members from a fixture file. Items are
addressed by primary key; a missing sort_order seeds a null key.

  kind: collection_products
  parent: 5
  items:
    - { id: 101, sort_order: 10 }
    - { id: 102 }`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	fixture, err := batchfile.LoadFixture(path)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidFile, err.Error(), nil, err)
	}
	kind, err := catalog.ParseKind(fixture.Kind)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidFile, err.Error(), nil, err)
	}

	s, err := openSession(opts, cmd)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil, err)
	}
	defer s.Close()

	if err := s.svc.Seed(commandContext(cmd), kind, fixture.Parent, fixture.SeedItems()); err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to seed list", nil, err)
	}

	return f.Success(SeedResult{
		Kind:   kind.String(),
		Parent: catalog.EncodeID(kind.Relation().ParentType, fixture.Parent),
		Items:  len(fixture.Items),
	})
}
