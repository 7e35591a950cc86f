package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	// Same constructor with different arguments still matches.
	if !errors.Is(EntityNotFound("a"), EntityNotFound("b")) {
		t.Error("same code did not match")
	}
	// Different codes never match.
	if errors.Is(EntityNotFound("a"), EntitySetNotFound("a")) {
		t.Error("different codes matched")
	}
	// Matching survives wrapping.
	wrapped := fmt.Errorf("listing: %w", ConflictLinks())
	if !errors.Is(wrapped, ConflictLinks()) {
		t.Error("wrapped error did not match")
	}
}

func TestAsError(t *testing.T) {
	e, ok := AsError(fmt.Errorf("outer: %w", QueryInvalidError("$top", "-1")))
	if !ok {
		t.Fatal("AsError failed on wrapped error")
	}
	if e.Code != "PR400-OD-0029" || e.Status != 400 {
		t.Errorf("unwrapped = %+v", e)
	}

	if _, ok := AsError(errors.New("plain")); ok {
		t.Error("AsError accepted a plain error")
	}
}

func TestPreconditionReasons(t *testing.T) {
	missing := PreconditionFailedMissing()
	stale := PreconditionFailedStale()

	if missing.Reason != PreconditionMissing || stale.Reason != PreconditionStale {
		t.Errorf("reasons = %q, %q", missing.Reason, stale.Reason)
	}
	// Same code, same status: the wire treats them identically.
	if missing.Code != stale.Code || missing.Status != 412 {
		t.Errorf("codes = %q/%d, %q/%d", missing.Code, missing.Status, stale.Code, stale.Status)
	}
	if !errors.Is(missing, stale) {
		t.Error("precondition variants did not match by code")
	}
}

func TestErrorString(t *testing.T) {
	e := EntityNotFound("abc")
	want := "PR404-OD-0002: entity abc does not exist"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
