package testutil

import (
	"os"
	"testing"

	"github.com/spf13/afero"
)

func AssertFileEquals(t *testing.T, fs afero.Fs, path, want string) {
	t.Helper()
	got, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if string(got) != want {
		t.Errorf("%s content mismatch\nexpected:\n%s\nreceived:\n%s", path, want, got)
	}
}

// AssertFilesEquals compares a file on the test filesystem against a
// golden file on disk.
func AssertFilesEquals(t *testing.T, fs afero.Fs, gotPath, wantPath string) {
	t.Helper()
	want, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("reading golden file %s: %v", wantPath, err)
	}
	AssertFileEquals(t, fs, gotPath, string(want))
}

func AssertFileExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("checking %s: %v", path, err)
	}
	if !exists {
		t.Errorf("expected %s to exist", path)
	}
}

func AssertFileAbsent(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("checking %s: %v", path, err)
	}
	if exists {
		t.Errorf("expected %s to be absent", path)
	}
}
