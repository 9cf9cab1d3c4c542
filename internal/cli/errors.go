// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes shared by the CLI commands.
//
// Commands always return errors and never print them; main decides how to
// show an error and which exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ntsc-tui/internal/app"
	"github.com/jeranaias/ntsc-tui/internal/config"
	"github.com/jeranaias/ntsc-tui/internal/ui/components"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitInputError indicates the source could not be opened or decoded
	ExitInputError = 4
	// ExitRenderError indicates the export itself failed
	ExitRenderError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "render", "config")
	Action  string // Action being performed (e.g., "load", "show")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "input", "preset")
	ID       string // Identifier that was not found
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason, Example: example}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w in the CLI's error format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "[ERROR]"), err.Error())
	if hint, ok := components.HintFor(err); ok {
		fmt.Fprintf(w, "%s\n", RenderConditional(DimStyle, hint.Title+":"))
		for _, s := range hint.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFoundError
	}
	var cfgErr config.ValidateErrors
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Command == "config" {
		return ExitConfigError
	}

	var appErr *app.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case app.KindLoadVideo, app.KindCreatePipeline, app.KindPlayback:
			return ExitInputError
		case app.KindCreateRenderJob, app.KindRender:
			return ExitRenderError
		case app.KindPresetRead, app.KindPresetParse:
			return ExitConfigError
		}
	}
	return ExitGeneralError
}
