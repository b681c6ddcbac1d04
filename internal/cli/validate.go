package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pagecheck/internal/contract"
)

// ValidationError is one contract problem.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Contract string            `json:"contract,omitempty"`
	Routes   []string          `json:"routes,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <contract-dir>",
		Short: "Validate a contract without running scenarios",
		Long: `Compile a CUE contract against the built-in schema and check the
rules the schema cannot express: unique paths and field ids, submit
selectors, denied messages, credential fields and accounts.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, contractDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	files, err := contract.FindCUEFiles(contractDir)
	if err == nil {
		formatter.VerboseLog("Found %d CUE file(s) in %s", len(files), contractDir)
	}

	c, err := LoadContract(contractDir, "")
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && (le.Code == ErrCodeNotFound || le.Code == ErrCodeNoFiles || le.Code == ErrCodeScanError) {
			return outputValidateError(formatter, le.Code, le.Message, nil)
		}
		errs := validationErrors(contractDir)
		if len(errs) == 0 {
			errs = []ValidationError{{Message: err.Error(), Code: loadErrorCode(err)}}
		}
		return outputValidationErrors(formatter, errs)
	}

	if formatter.Format == "json" {
		routes := make([]string, 0, len(c.Routes()))
		for _, r := range c.Routes() {
			routes = append(routes, r.Name)
		}
		return formatter.Success(ValidationResult{Valid: true, Contract: c.Name, Routes: routes})
	}

	fmt.Fprintf(formatter.Writer, "✓ Contract %s valid (%d routes)\n", c.Name, len(c.Routes()))
	return nil
}

// validationErrors compiles dir again and lists every problem separately.
func validationErrors(dir string) []ValidationError {
	_, err := contract.LoadDir(dir)
	if err == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range compileErrors(err) {
		var ce *contract.CompileError
		if !errors.As(e, &ce) {
			out = append(out, ValidationError{Message: e.Error(), Code: ErrCodeLoadFailed})
			continue
		}
		ve := ValidationError{Field: ce.Field, Message: ce.Message, Code: ErrCodeContract}
		if ce.Field == "cue" {
			ve.Code = ErrCodeBuildFailed
		}
		if ce.Pos.IsValid() {
			ve.File = ce.Pos.Filename()
			ve.Line = ce.Pos.Line()
		}
		out = append(out, ve)
	}
	return out
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Missing inputs are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s line %d\n", err.File, err.Line)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
