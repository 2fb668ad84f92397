package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseContext  Phase = "context"  // arena creation and teardown
	PhaseParse    Phase = "parse"    // SPIR-V word parsing
	PhaseReflect  Phase = "reflect"  // reflection queries
	PhaseDecorate Phase = "decorate" // decoration and name mutation
	PhaseCompile  Phase = "compile"  // source generation
	PhaseLoad     Phase = "load"     // guest module loading
	PhaseCall     Phase = "call"     // raw foreign call transport
	PhaseEncode   Phase = "encode"   // host to guest data conversion
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfMemory    Kind = "out_of_memory"
	KindForeign        Kind = "foreign"
	KindInvalidHandle  Kind = "invalid_handle"
	KindEmbeddedNul    Kind = "embedded_nul"
	KindInvalidInput   Kind = "invalid_input"
	KindNotInitialized Kind = "not_initialized"
	KindFrozen         Kind = "frozen"
	KindMissingExport  Kind = "missing_export"
	KindAllocation     Kind = "allocation"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Detail   string
	Foreign  string // message captured from the foreign library, if any
	CtxPtr   uint32 // foreign context the error came from, 0 if none
	ObjectID uint32 // offending SPIR-V ID, 0 if none
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.ObjectID != 0 {
		fmt.Fprintf(&b, " (id %d)", e.ObjectID)
	}

	if e.Foreign != "" {
		b.WriteString(": ")
		b.WriteString(e.Foreign)
	}

	if e.CtxPtr != 0 {
		fmt.Fprintf(&b, " (context 0x%x)", e.CtxPtr)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Foreign sets the message captured from the foreign library
func (b *Builder) Foreign(msg string) *Builder {
	b.err.Foreign = msg
	return b
}

// Context records which foreign context the error came from
func (b *Builder) Context(ptr uint32) *Builder {
	b.err.CtxPtr = ptr
	return b
}

// Object records the offending SPIR-V ID
func (b *Builder) Object(id uint32) *Builder {
	b.err.ObjectID = id
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfMemory reports that the foreign allocator could not satisfy a request
func OutOfMemory(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Detail: "out of memory",
	}
}

// Foreign reports a non-success code from the wrapped library together with
// the message it captured, if one was available.
func Foreign(phase Phase, detail, message string, ctxPtr uint32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindForeign,
		Detail:  detail,
		Foreign: message,
		CtxPtr:  ctxPtr,
	}
}

// InvalidHandle reports a handle or proof presented to a compiler instance
// other than the one that produced it. Detected before any foreign call.
func InvalidHandle(phase Phase, id uint32, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidHandle,
		Detail:   detail,
		ObjectID: id,
	}
}

// EmbeddedNul reports a string that cannot cross the foreign boundary
// because it contains an interior nul byte.
func EmbeddedNul(phase Phase, pos int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmbeddedNul,
		Detail: fmt.Sprintf("string contains nul byte at offset %d", pos),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error for a consumed or closed object
func NotInitialized(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", what),
	}
}

// Frozen reports a mutating call on a compiler that has produced its artifact
func Frozen(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFrozen,
		Detail: detail,
	}
}

// MissingExport reports a guest module that lacks a required export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("guest module does not export %q", name),
	}
}

// AllocationFailed reports a guest memory allocation failure
func AllocationFailed(phase Phase, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes in guest memory", size),
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Call creates a raw foreign call transport error
func Call(fn string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindForeign,
		Detail: fmt.Sprintf("call %s", fn),
		Cause:  cause,
	}
}
