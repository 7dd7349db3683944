package devchannel

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestMiscMajorFrom(t *testing.T) {
	t.Parallel()
	path := writeFixture(t, "Character devices:\n  1 mem\n 10 misc\n180 usb\n")

	major, err := miscMajorFrom(path)
	if err != nil {
		t.Fatalf("miscMajorFrom: %v", err)
	}
	if major != 10 {
		t.Fatalf("major = %d, want 10", major)
	}
}

func TestMiscMajorFrom_NotFound(t *testing.T) {
	t.Parallel()
	path := writeFixture(t, "Character devices:\n  1 mem\n")

	if _, err := miscMajorFrom(path); err == nil {
		t.Fatal("expected error when misc class is absent")
	}
}

func TestMiscMinorFrom(t *testing.T) {
	t.Parallel()
	path := writeFixture(t, " 56 plock_dev\n130 watchdog\n")

	minor, err := miscMinorFrom(path, DeviceName)
	if err != nil {
		t.Fatalf("miscMinorFrom: %v", err)
	}
	if minor != 56 {
		t.Fatalf("minor = %d, want 56", minor)
	}
}

func TestMiscMinorFrom_NotFound(t *testing.T) {
	t.Parallel()
	path := writeFixture(t, "130 watchdog\n")

	if _, err := miscMinorFrom(path, DeviceName); err == nil {
		t.Fatal("expected error when device is absent")
	}
}
