package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
)

// Exit codes for CLI commands.
const (
	ExitSuccess    = 0
	ExitFailure    = 1 // an action failed
	ExitUsageError = 2 // bad flags, bad config, unknown store or action
	ExitTimeout    = 124
	ExitSigIntBase = 128
	ExitSigInt     = ExitSigIntBase + int(syscall.SIGINT)
)

// Error codes carried in JSON error responses.
const (
	ErrCodeUsage       = "usage"
	ErrCodeAction      = "action_failed"
	ErrCodeTimeout     = "timeout"
	ErrCodeInterrupted = "interrupted"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err, ExitFailure when it has none.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

// Response is the JSON envelope of every command result.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed command in a JSON response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool { return f.Format == "json" }

// Respond writes data, and err when the command failed, in JSON mode. Text
// mode commands print as they go and only call Respond for JSON.
func (f *OutputFormatter) Respond(data interface{}, code string, err error) error {
	resp := Response{Status: "ok", Data: data}
	if err != nil {
		resp.Status = "error"
		resp.Error = &ErrorBody{Code: code, Message: err.Error()}
	}
	out, mErr := json.MarshalIndent(resp, "", "  ")
	if mErr != nil {
		return mErr
	}
	_, wErr := fmt.Fprintf(f.Writer, "%s\n", out)
	return wErr
}

// Printf writes text output.
func (f *OutputFormatter) Printf(format string, args ...interface{}) {
	fmt.Fprintf(f.Writer, format, args...)
}

// formatValue renders a state or query value on one line: scalars as-is,
// everything else as compact JSON.
func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(t)
	case error:
		return "error: " + t.Error()
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}

// formatArgs renders invocation arguments, quoting strings.
func formatArgs(args []interface{}) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok {
			parts[i] = strconv.Quote(s)
			continue
		}
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}
