package errors

import (
	stdErrors "errors"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New(KindBackendError, "test")
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestSentinelsMatchByKind(t *testing.T) {
	wrapped := ErrDuplicateUser.WithMessagef("User %s already exists", "nroberts")

	if !stdErrors.Is(wrapped, ErrDuplicateUser) {
		t.Fatal("expected copy to match its sentinel by kind")
	}
	if stdErrors.Is(wrapped, ErrDuplicateInvitation) {
		t.Fatal("expected kinds to be distinguished")
	}
	if wrapped.Message != "User nroberts already exists" {
		t.Fatalf("unexpected message: %s", wrapped.Message)
	}
}

func TestKindOf(t *testing.T) {
	if kind := KindOf(ErrFormatMismatch.WithInternal(stdErrors.New("len"))); kind != KindFormatMismatch {
		t.Fatalf("expected format mismatch kind, got %s", kind)
	}

	if kind := KindOf(stdErrors.New("raw")); kind != KindBackendError {
		t.Fatalf("expected backend kind for foreign errors, got %s", kind)
	}

	if kind := KindOf(nil); kind != "" {
		t.Fatalf("expected empty kind for nil, got %s", kind)
	}
}
