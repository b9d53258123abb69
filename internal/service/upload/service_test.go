package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestSaveStoresUnderRandomName(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, "/files/", 1024, zap.NewNop())

	res, err := svc.Save(context.Background(), "Brief.PDF", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(res.FileURL, "/files/") || !strings.HasSuffix(res.Name, ".pdf") {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Size != 5 || res.OriginalName != "Brief.PDF" {
		t.Errorf("unexpected size/name %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(dir, res.Name))
	if err != nil || string(data) != "hello" {
		t.Fatalf("stored file: %q %v", data, err)
	}
}

func TestSaveRejectsOversizedAndEmpty(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, "/files", 4, zap.NewNop())

	if _, err := svc.Save(context.Background(), "a.txt", strings.NewReader("12345")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := svc.Save(context.Background(), "a.txt", strings.NewReader("")); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("partial files must be removed, found %d", len(entries))
	}
}

func TestSafeExt(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":         ".jpg",
		"../../etc/passwd":  "",
		"archive.tar.gz":    ".gz",
		"weird.p$p":         "",
		"noext":             "",
		"long.abcdefghijkl": "",
	}
	for in, want := range cases {
		if got := safeExt(in); got != want {
			t.Errorf("safeExt(%q) = %q, want %q", in, got, want)
		}
	}
}
