package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeModTimes map[string]time.Time

func (f fakeModTimes) ModTime(path string) (time.Time, error) {
	t, ok := f[path]
	if !ok {
		return time.Time{}, errors.New("no such file")
	}
	return t, nil
}

func TestCheck(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fs := fakeModTimes{"/thumbs/a.jpg": base}
	v := NewValidator(fs)

	tests := []struct {
		name   string
		path   string
		origin time.Time
		want   Status
	}{
		{"cache newer than origin", "/thumbs/a.jpg", base.Add(-time.Hour), Valid},
		{"cache as new as origin", "/thumbs/a.jpg", base, Valid},
		{"cache older than origin", "/thumbs/a.jpg", base.Add(time.Second), Stale},
		{"missing cache file", "/thumbs/b.jpg", base.Add(-time.Hour), Missing},
		{"unknown origin time", "/thumbs/a.jpg", time.Time{}, UnknownOrigin},
		{"missing and unknown", "/thumbs/b.jpg", time.Time{}, Missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Check(tt.path, tt.origin); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			if got := v.IsValid(tt.path, tt.origin); got != (tt.want == Valid) {
				t.Errorf("IsValid() = %v, want %v", got, tt.want == Valid)
			}
		})
	}
}

type osModTimes struct{}

func (osModTimes) ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func TestIsValidOnDisk(t *testing.T) {
	dir := t.TempDir()
	thumb := filepath.Join(dir, "thumb.jpg")
	if err := os.WriteFile(thumb, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	written := time.Now().Add(-time.Hour)
	if err := os.Chtimes(thumb, written, written); err != nil {
		t.Fatal(err)
	}

	v := NewValidator(osModTimes{})
	if !v.IsValid(thumb, written.Add(-time.Minute)) {
		t.Error("thumbnail written after the origin changed should be valid")
	}
	if v.IsValid(thumb, time.Now()) {
		t.Error("thumbnail older than the origin should be invalid")
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{Valid: "valid", Missing: "missing", Stale: "stale", UnknownOrigin: "unknown_origin", Status(9): "invalid"} {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}
