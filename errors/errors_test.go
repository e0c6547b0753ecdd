package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseOpen,
				Kind:   KindAlreadyExists,
				Path:   "/opt/testchain/log",
				Detail: "special files cannot be created",
				Fd:     3,
			},
			contains: []string{"[open]", "already_exists", "fd=3", "/opt/testchain/log", "cannot be created"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRead,
				Kind:  KindBadDescriptor,
				Fd:    NoFd,
			},
			contains: []string{"[read]", "bad_descriptor"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "compile contract",
				Cause:  errors.New("underlying error"),
				Fd:     NoFd,
			},
			contains: []string{"[load]", "invalid_data", "compile contract", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_NoFdOmitted(t *testing.T) {
	msg := NotFound(PhaseResolve, "x").Error()
	if strings.Contains(msg, "fd=") {
		t.Errorf("message %q should not mention a descriptor", msg)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseFlush, KindInvalidData, cause, "emit")

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseOpen,
		Kind:  KindNotFound,
		Path:  "foo",
	}

	if !err.Is(&Error{Phase: PhaseOpen, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseUnlink, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseOpen, Kind: KindAccessDenied}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should match the kind sentinel")
	}
	if errors.Is(err, ErrBadDescriptor) {
		t.Error("errors.Is should not match another kind sentinel")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{BadDescriptor(PhaseClose, 9), KindBadDescriptor},
		{AccessDenied(PhaseUnlink, "balance", ""), KindAccessDenied},
		{errors.Join(errors.New("other"), InvalidArgument(PhaseSeek, "negative")), KindInvalidArgument},
		{errors.New("plain"), ""},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseFlush, KindInvalidArgument).
		Path("/opt/testchain/log").
		Fd(7).
		Cause(cause).
		Detail("record truncated at %d of %d bytes", 3, 9).
		Build()

	if err.Phase != PhaseFlush {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseFlush)
	}
	if err.Kind != KindInvalidArgument {
		t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidArgument)
	}
	if err.Path != "/opt/testchain/log" {
		t.Errorf("Path = %q", err.Path)
	}
	if err.Fd != 7 {
		t.Errorf("Fd = %d, want 7", err.Fd)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "record truncated at 3 of 9 bytes" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestBuilder_DefaultsToNoFd(t *testing.T) {
	if err := New(PhaseOpen, KindNotFound).Build(); err.Fd != NoFd {
		t.Errorf("Fd = %d, want NoFd", err.Fd)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("BadDescriptor", func(t *testing.T) {
		err := BadDescriptor(PhaseRead, 99)
		if err.Kind != KindBadDescriptor || err.Fd != 99 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		err := AlreadyExists(PhaseOpen, "somefile")
		if err.Kind != KindAlreadyExists || err.Path != "somefile" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Fault", func(t *testing.T) {
		err := Fault(65530, 16)
		if err.Kind != KindFault || err.Phase != PhaseHost {
			t.Errorf("got %+v", err)
		}
		if !strings.Contains(err.Detail, "65530") {
			t.Errorf("Detail = %q, should contain offset", err.Detail)
		}
	})

	t.Run("Instantiation", func(t *testing.T) {
		err := Instantiation(errors.New("boom"))
		if err.Kind != KindInstantiation || err.Phase != PhaseRuntime {
			t.Errorf("got %+v", err)
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"wasi_snapshot_preview1#clock_time_get"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Module != "wasi_snapshot_preview1" {
			t.Errorf("module = %q", err.Imports[0].Module)
		}
		if err.Imports[0].Function != "clock_time_get" {
			t.Errorf("function = %q", err.Imports[0].Function)
		}
	})

	t.Run("grouped by module", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"wasi_snapshot_preview1#clock_time_get",
			"env#__wasi_blockchain_transact",
			"wasi_snapshot_preview1#random_get",
		})
		msg := err.Error()
		for _, s := range []string{"missing 3", "wasi_snapshot_preview1:", "env:", "random_get"} {
			if !strings.Contains(msg, s) {
				t.Errorf("error %q should contain %q", msg, s)
			}
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		msg := NewMissingImportsError(nil).Error()
		if !strings.Contains(msg, "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", msg)
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"ns#fn"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}

func TestDemangleRust(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fd_write", "fd_write"},
		{"_ZN4core3ptr8write_fn17ha1b2c3d4e5f67890E", "core::ptr::write_fn"},
		{"_ZN9oasis_std7backend4wasi8transact17h0123456789abcdefE", "oasis_std::backend::wasi::transact"},
	}

	for _, tt := range tests {
		if got := demangleRust(tt.input); got != tt.expected {
			t.Errorf("demangleRust(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
