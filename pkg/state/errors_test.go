package state

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAuraError_ErrorString(t *testing.T) {
	t.Parallel()

	e := Recoverable(CodeFileNotFound, "file could not be opened", "check the file path", nil)
	if got := e.Error(); !strings.Contains(got, CodeFileNotFound) {
		t.Errorf("Error() = %q, want it to contain the code", got)
	}

	e.Detail = "stat /tmp/missing.wav: no such file"
	if got := e.Error(); !strings.Contains(got, "no such file") {
		t.Errorf("Error() = %q, want it to contain the detail", got)
	}
}

func TestAuraError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("device claimed by another process")
	e := Transient(CodeDeviceUnavailable, "device is busy", cause)

	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	wrapped := fmt.Errorf("capture: %w", e)
	var ae *AuraError
	if !errors.As(wrapped, &ae) || ae.Code != CodeDeviceUnavailable {
		t.Error("errors.As should find the AuraError through wrapping")
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	if Translate(nil) != nil {
		t.Error("Translate(nil) should be nil")
	}

	// An AuraError passes through unchanged, even when wrapped.
	orig := Blocking(CodeDiskFull, "disk is full", nil)
	if got := Translate(fmt.Errorf("export: %w", orig)); got != orig {
		t.Errorf("Translate(wrapped AuraError) = %v, want the original", got)
	}

	// A raw platform error becomes a blocking internal error.
	got := Translate(errors.New("ioctl failed: ENXIO"))
	if got.Code != CodeInternal || got.Category != CategoryBlocking {
		t.Errorf("Translate(raw) = %#v, want blocking internal", got)
	}
	if !strings.Contains(got.Detail, "ENXIO") {
		t.Errorf("Detail = %q, want the raw message preserved", got.Detail)
	}
}

func TestCategory_IsValid(t *testing.T) {
	t.Parallel()

	for _, c := range []Category{CategoryRecoverable, CategoryTransient, CategoryBlocking} {
		if !c.IsValid() {
			t.Errorf("%q should be valid", c)
		}
	}
	if Category("fatal").IsValid() {
		t.Error("unknown category should be invalid")
	}
}
