package xerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Fatal("Wrapf(nil) should be nil")
	}
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) should be nil")
	}
}

func TestWrapMessageAndUnwrap(t *testing.T) {
	base := errors.New("disk on fire")
	err := Wrap(base, "probe mods dir")

	if got := err.Error(); got != "probe mods dir: disk on fire" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Fatal("wrapped error should match base via errors.Is")
	}
}

func TestWrapfFormats(t *testing.T) {
	base := errors.New("nope")
	err := Wrapf(base, "enumerate %s", "Graphics")
	if !strings.HasPrefix(err.Error(), "enumerate Graphics: ") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestNewCapturesStack(t *testing.T) {
	err := New("boom")

	var hs interface{ StackPCs() []uintptr }
	if !errors.As(err, &hs) {
		t.Fatal("New error should carry a stack")
	}
	if len(hs.StackPCs()) == 0 {
		t.Fatal("captured stack is empty")
	}
}

func TestWrapCapturesCallerPC(t *testing.T) {
	err := Wrap(errors.New("x"), "y")

	var hp interface{ PC() uintptr }
	if !errors.As(err, &hp) {
		t.Fatal("Wrap error should carry a caller PC")
	}
	if hp.PC() == 0 {
		t.Fatal("caller PC is zero")
	}
}
