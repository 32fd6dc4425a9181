package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skifflog/skiff/internal/materialize"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation rejected (validation failure, protocol error, fold error)
	ExitCommandError = 2 // Command error (bad flags, missing files, unreachable archive)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Verbose logs go to stderr to avoid corrupting JSON
	Verbose   bool
}

// VerboseLog prints a diagnostic line when verbose output is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}

// PrintJSON writes v as indented JSON.
func (f *OutputFormatter) PrintJSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// documentView is the JSON shape for one materialized document.
type documentView struct {
	ID      string         `json:"id"`
	Author  string         `json:"author"`
	Schema  string         `json:"schema"`
	Deleted bool           `json:"deleted"`
	Edited  bool           `json:"edited"`
	Entries int            `json:"entries"`
	Fields  map[string]any `json:"fields"`
}

// PrintDocuments renders materialized documents in the configured format.
func (f *OutputFormatter) PrintDocuments(docs []*materialize.Document) error {
	if f.Format == "json" {
		views := make([]documentView, len(docs))
		for i, doc := range docs {
			views[i] = documentView{
				ID:      doc.ID,
				Author:  doc.Meta.Author,
				Schema:  doc.Meta.Schema,
				Deleted: doc.Meta.Deleted,
				Edited:  doc.Meta.Edited,
				Entries: len(doc.Meta.Entries),
				Fields:  doc.Fields,
			}
		}
		return f.PrintJSON(views)
	}

	for _, doc := range docs {
		status := "live"
		if doc.Meta.Deleted {
			status = "deleted"
		}
		fmt.Fprintf(f.Writer, "%s  [%s]  %d entries\n", doc.ID, status, len(doc.Meta.Entries))
		for name, value := range doc.Fields {
			fmt.Fprintf(f.Writer, "  %s = %v\n", name, value)
		}
	}
	fmt.Fprintf(f.Writer, "%d document(s)\n", len(docs))
	return nil
}
