// Package exception provides the error taxonomy used across the heliomorph
// pipeline. Errors carry the module where they occurred, a concise message,
// the wrapped cause and a Kind used to decide how a failing (scenario, year)
// pair is recorded. One failing pair never aborts the batch; the taxonomy is
// what the pipeline and the consolidator key on.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a PipelineError.
type Kind string

const (
	// KindStructural marks an hourly-grid invariant violation. Fatal for the
	// affected record, never corrupts others.
	KindStructural Kind = "StructuralError"
	// KindDataUnavailable marks a missing climate driver for a required month.
	KindDataUnavailable Kind = "DataUnavailable"
	// KindMorph marks an internal inconsistency during transform application.
	KindMorph Kind = "MorphError"
	// KindSimulation marks an external simulator failure. Caught and recorded
	// as an ERROR status row.
	KindSimulation Kind = "SimulationError"
	// KindConfig marks invalid or missing configuration.
	KindConfig Kind = "ConfigError"
)

// Sentinel errors for errors.Is classification across package boundaries.
var (
	ErrStructural      = errors.New(string(KindStructural))
	ErrDataUnavailable = errors.New(string(KindDataUnavailable))
	ErrMorph           = errors.New(string(KindMorph))
	ErrSimulation      = errors.New(string(KindSimulation))
	ErrConfig          = errors.New(string(KindConfig))
)

func sentinelFor(kind Kind) error {
	switch kind {
	case KindStructural:
		return ErrStructural
	case KindDataUnavailable:
		return ErrDataUnavailable
	case KindMorph:
		return ErrMorph
	case KindSimulation:
		return ErrSimulation
	case KindConfig:
		return ErrConfig
	default:
		return nil
	}
}

// PipelineError is the custom error type used throughout the pipeline.
type PipelineError struct {
	// Module indicates the component where the error occurred
	// (e.g. "morph", "climatology", "profile", "consolidate").
	Module string
	// Kind classifies the error for propagation policy decisions.
	Kind Kind
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error, if any.
	OriginalErr error
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// New creates a new PipelineError.
func New(module string, kind Kind, message string, originalErr error) *PipelineError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &PipelineError{
		Module:      module,
		Kind:        kind,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// Newf creates a new PipelineError with a formatted message.
func Newf(module string, kind Kind, format string, a ...interface{}) *PipelineError {
	return New(module, kind, fmt.Sprintf(format, a...), nil)
}

// Error implements the error interface. It returns the module, kind, message
// and the string representation of the original error.
func (e *PipelineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Module, e.Kind, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Module, e.Kind, e.Message)
}

// Unwrap returns the wrapped cause chained with the Kind sentinel so that both
// errors.Is(err, ErrStructural) and errors.Is(err, cause) hold.
func (e *PipelineError) Unwrap() error {
	sentinel := sentinelFor(e.Kind)
	if sentinel == nil {
		return e.OriginalErr
	}
	if e.OriginalErr == nil {
		return sentinel
	}
	return errors.Join(sentinel, e.OriginalErr)
}

// IsKind reports whether err is a PipelineError of the given kind anywhere in
// its chain.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	sentinel := sentinelFor(kind)
	if sentinel != nil && errors.Is(err, sentinel) {
		return true
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// IsStructural reports whether err is a StructuralError.
func IsStructural(err error) bool { return IsKind(err, KindStructural) }

// IsDataUnavailable reports whether err is a DataUnavailable error.
func IsDataUnavailable(err error) bool { return IsKind(err, KindDataUnavailable) }

// IsMorph reports whether err is a MorphError.
func IsMorph(err error) bool { return IsKind(err, KindMorph) }

// IsSimulation reports whether err is a SimulationError.
func IsSimulation(err error) bool { return IsKind(err, KindSimulation) }

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool { return IsKind(err, KindConfig) }

// ExtractKind returns the Kind of the first PipelineError in the chain, or
// "unknown" for foreign errors. Useful as a low-cardinality metric label.
func ExtractKind(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return "unknown"
}

// ExtractMessage extracts the message string from an error. For a
// PipelineError it returns the cleaner Message field; otherwise the standard
// Error() string.
func ExtractMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
