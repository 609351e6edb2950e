package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "photos")
	s, err := NewDiskStore(dir, "/photos/")
	if err != nil {
		t.Fatal(err)
	}

	src, err := s.Put(ctx, "abc-sunset.jpg", []byte("jpeg bytes"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if src != "/photos/abc-sunset.jpg" {
		t.Errorf("src = %q", src)
	}

	p, release, err := s.LocalPath(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(p)
	release()
	if err != nil || string(data) != "jpeg bytes" {
		t.Errorf("LocalPath content = %q, %v", data, err)
	}

	if err := s.Delete(ctx, src); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc-sunset.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}
	if err := s.Delete(ctx, src); err != nil {
		t.Errorf("deleting a missing file: %v", err)
	}
	if _, _, err := s.LocalPath(ctx, src); err == nil {
		t.Error("LocalPath of a deleted file should fail")
	}
}

func TestDiskStore_RejectsUnsafeKeys(t *testing.T) {
	t.Parallel()

	s, err := NewDiskStore(t.TempDir(), "/photos")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "..", "../escape.jpg", `sub\file.jpg`} {
		if _, err := s.Put(context.Background(), key, []byte("x"), ""); err == nil {
			t.Errorf("Put(%q) succeeded", key)
		}
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		original string
		want     string
	}{
		{"IMG_1234.JPG", "id-IMG_1234.JPG"},
		{"my holiday photo.jpg", "id-my-holiday-photo.jpg"},
		{"../../etc/passwd", "id-passwd"},
		{`C:\Users\me\pic.png`, "id-pic.png"},
		{"", "id-photo.jpg"},
	}
	for _, tc := range tests {
		if got := FileName("id", tc.original); got != tc.want {
			t.Errorf("FileName(%q) = %q, want %q", tc.original, got, tc.want)
		}
	}
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src     string
		want    string
		wantErr bool
	}{
		{"http://minio:9000/photos/abc-sunset.jpg", "abc-sunset.jpg", false},
		{"https://cdn.example.com/photos/abc-my%20photo.jpg", "abc-my photo.jpg", false},
		{"abc.jpg", "abc.jpg", false},
		{"http://minio:9000/photos/", "", true},
	}
	for _, tc := range tests {
		got, err := objectName(tc.src)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("objectName(%q) = %q, %v", tc.src, got, err)
		}
	}
}
