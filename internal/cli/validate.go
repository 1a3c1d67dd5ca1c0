package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reorder/internal/batchfile"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	File  string            `json:"file"`
	Kind  batchfile.DocKind `json:"kind,omitempty"`
	Valid bool              `json:"valid"`
	Line  int               `json:"line,omitempty"`
	Error string            `json:"error,omitempty"`
}

func (r ValidationResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "✓ %s is a valid %s file\n", r.File, r.Kind)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a batch or fixture file against its schema",
		Long: `Validate a batch or fixture file without touching the database.

YAML and CUE files are both checked against the embedded CUE schema.
Documents with an items field are fixtures; all others are batches.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	kind, err := batchfile.Validate(path)
	if err == nil {
		return f.Success(ValidationResult{File: path, Kind: kind, Valid: true})
	}

	var docErr *batchfile.Error
	if !errors.As(err, &docErr) {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil, err)
	}

	result := ValidationResult{File: path, Kind: kind, Valid: false, Line: docErr.Line, Error: docErr.Message}
	return f.Fail(ExitFailure, ErrCodeInvalidFile, docErr.Error(), result, err)
}
