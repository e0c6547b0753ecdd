package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates which operation produced the error
type Phase string

const (
	PhaseResolve  Phase = "resolve"  // path canonicalization
	PhaseOpen     Phase = "open"     // path_open / tempfile
	PhaseRead     Phase = "read"     // read / pread
	PhaseWrite    Phase = "write"    // write / pwrite
	PhaseSeek     Phase = "seek"     // seek / tell
	PhaseFlush    Phase = "flush"    // explicit or implicit flush
	PhaseClose    Phase = "close"    // close / renumber
	PhaseUnlink   Phase = "unlink"   // path_unlink_file
	PhaseStat     Phase = "stat"     // prestat / fdstat / filestat
	PhaseHost     Phase = "host"     // guest memory access in the host bridge
	PhaseLoad     Phase = "load"     // contract compilation
	PhaseRuntime  Phase = "runtime"  // contract execution
	PhaseChain    Phase = "chain"    // ledger collaborator
	PhaseSnapshot Phase = "snapshot" // state snapshot encoding
)

// Kind categorizes the error
type Kind string

const (
	KindBadDescriptor   Kind = "bad_descriptor"
	KindNotFound        Kind = "not_found"
	KindAlreadyExists   Kind = "already_exists"
	KindInvalidArgument Kind = "invalid_argument"
	KindAccessDenied    Kind = "access_denied"
	KindFault           Kind = "fault"
	KindInvalidData     Kind = "invalid_data"
	KindMissingImport   Kind = "missing_import"
	KindInstantiation   Kind = "instantiation"
)

// Sentinels for matching by kind alone with errors.Is.
var (
	ErrBadDescriptor   = &Error{Kind: KindBadDescriptor}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrAccessDenied    = &Error{Kind: KindAccessDenied}
	ErrFault           = &Error{Kind: KindFault}
)

// NoFd marks an error that is not tied to a descriptor.
const NoFd int64 = -1

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Path   string
	Detail string
	Fd     int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Fd >= 0 {
		fmt.Fprintf(&b, " fd=%d", e.Fd)
	}

	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
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

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
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
			Fd:    NoFd,
		},
	}
}

// Path sets the canonical or guest-supplied path
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Fd sets the descriptor number
func (b *Builder) Fd(fd uint32) *Builder {
	b.err.Fd = int64(fd)
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
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

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Filesystem convenience constructors

// BadDescriptor creates an error for an unknown or unsuitable descriptor
func BadDescriptor(phase Phase, fd uint32) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindBadDescriptor,
		Fd:    int64(fd),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, path string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindNotFound,
		Path:  path,
		Fd:    NoFd,
	}
}

// AlreadyExists creates an already-exists error
func AlreadyExists(phase Phase, path string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindAlreadyExists,
		Path:  path,
		Fd:    NoFd,
	}
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArgument,
		Detail: detail,
		Fd:     NoFd,
	}
}

// AccessDenied creates an access-denied error
func AccessDenied(phase Phase, path string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAccessDenied,
		Path:   path,
		Detail: detail,
		Fd:     NoFd,
	}
}

// Fault creates an error for a guest pointer outside linear memory
func Fault(offset, length uint32) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindFault,
		Detail: fmt.Sprintf("guest memory [%d, +%d) out of range", offset, length),
		Fd:     NoFd,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
		Fd:     NoFd,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: "instantiate contract",
		Cause:  cause,
		Fd:     NoFd,
	}
}

// Load creates a contract loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
		Fd:     NoFd,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module   string // e.g., "wasi_snapshot_preview1"
	Function string // e.g., "clock_time_get"
}

// MissingImportsError is returned when a contract imports functions the host does not provide
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func parseImportKey(key string) (module, function string) {
	mod, fn, found := strings.Cut(key, "#")
	if found {
		return mod, fn
	}
	return key, ""
}

// demangleRust attempts to extract readable function name from mangled Rust symbol
func demangleRust(name string) string {
	// Rust mangled names start with _ZN
	if !strings.HasPrefix(name, "_ZN") {
		return name
	}

	// Format: _ZN<len><name><len><name>...E
	s := name[3:]
	var parts []string

	for len(s) > 0 && s[0] != 'E' {
		lenEnd := 0
		for lenEnd < len(s) && s[lenEnd] >= '0' && s[lenEnd] <= '9' {
			lenEnd++
		}
		if lenEnd == 0 {
			break
		}

		length := 0
		for i := 0; i < lenEnd; i++ {
			length = length*10 + int(s[i]-'0')
		}
		s = s[lenEnd:]

		if length > len(s) {
			break
		}

		part := s[:length]
		s = s[length:]

		// 17 char hash suffixes starting with 'h'
		if len(part) == 17 && part[0] == 'h' && isHex(part[1:]) {
			continue
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return name
	}

	return strings.Join(parts, "::")
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[load] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "missing %d host function(s):\n", len(e.Imports))

	byModule := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], demangleRust(imp.Function))
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
