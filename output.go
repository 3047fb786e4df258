package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // conversion or simulation rejected the input
	ExitCommandError = 2 // bad flags, unreadable files
)

// Error codes reported in JSON output.
const (
	ErrCodeInvalidArgument = "E001"
	ErrCodeInput           = "E002"
	ErrCodeSimulation      = "E003"
	ErrCodeIO              = "E004"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error

	reported bool // already written by an OutputFormatter
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

func wrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// exitCode maps an error to a process exit code. Errors that are not
// ExitErrors are treated as failures.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// response is the JSON envelope written for every command in json format.
type response struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *responseError `json:"error,omitempty"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Success writes data. Text output prints text; JSON output wraps data.
func (f *OutputFormatter) Success(text string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(response{Status: "ok", Data: data})
	}
	_, err := fmt.Fprint(f.Writer, text)
	return err
}

// Error reports a failure and returns it as an ExitError with the given code.
func (f *OutputFormatter) Error(exit int, code, message string, err error, details any) error {
	if f.Format == "json" {
		msg := message
		if err != nil {
			msg = fmt.Sprintf("%s: %v", message, err)
		}
		if encErr := json.NewEncoder(f.Writer).Encode(response{
			Status: "error",
			Error:  &responseError{Code: code, Message: msg, Details: details},
		}); encErr != nil {
			return encErr
		}
	} else {
		w := f.errWriter()
		fmt.Fprintf(w, "Error [%s]: %s", code, message)
		if err != nil {
			fmt.Fprintf(w, ": %v", err)
		}
		fmt.Fprintln(w)
		if f.Verbose && details != nil {
			fmt.Fprintf(w, "Details: %v\n", details)
		}
	}
	exitErr := wrapExitError(exit, fmt.Sprintf("[%s] %s", code, message), err)
	exitErr.reported = true
	return exitErr
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
