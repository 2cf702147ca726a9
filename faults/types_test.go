package faults

import (
	"errors"
	"testing"
)

func TestIsCategory(t *testing.T) {
	t.Parallel()

	err := NewTypedError(RemoteError, "remote request failed", nil)
	if !IsCategory(err, RemoteError) {
		t.Fatalf("expected remote category match")
	}
	if IsCategory(err, NotFoundError) {
		t.Fatalf("expected not-found category mismatch")
	}

	plain := errors.New("plain: " + err.Error())
	if IsCategory(plain, RemoteError) {
		t.Fatalf("plain string error must not match typed category")
	}

	joined := errors.Join(err, errors.New("other"))
	if !IsCategory(joined, RemoteError) {
		t.Fatalf("expected category match through errors.Join")
	}
}

func TestTypedErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("status 500")
	err := NewTypedError(RemoteError, "listing pools", cause)
	if err.Error() != "listing pools: status 500" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}

	bare := NewTypedError(UnsupportedError, "", nil)
	if bare.Error() != string(UnsupportedError) {
		t.Fatalf("unexpected bare message: %s", bare.Error())
	}
}
