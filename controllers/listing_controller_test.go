package controllers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/bazaarche/bazaarche/utils"
)

// makeFileHeader builds a *multipart.FileHeader with content, the way the
// http package produces one from a parsed request body.
func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image_0", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["image_0"][0]
}

func pngBytes() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, bytes.Repeat([]byte{0}, 64)...)
}

func TestStageUploadsStoresAllParts(t *testing.T) {
	l := &ListingController{}
	files := []*multipart.FileHeader{
		makeFileHeader(t, "a.png", pngBytes()),
		makeFileHeader(t, "b.png", pngBytes()),
	}

	paths, err := l.stageUploads(files)
	if err != nil {
		t.Fatalf("stageUploads: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("staged %d paths, want 2", len(paths))
	}
	for _, p := range paths {
		fsPath := stagedFSPath(t, p)
		if _, err := os.Stat(fsPath); err != nil {
			t.Errorf("staged file missing for %s: %v", p, err)
		}
	}

	discardUploads(paths)
	for _, p := range paths {
		if _, err := os.Stat(stagedFSPath(t, p)); !os.IsNotExist(err) {
			t.Errorf("discarded file still present: %s", p)
		}
	}
}

// A rejected part must not leave earlier staged files behind.
func TestStageUploadsCleansUpOnFailure(t *testing.T) {
	l := &ListingController{}
	files := []*multipart.FileHeader{
		makeFileHeader(t, "ok.png", pngBytes()),
		makeFileHeader(t, "bad.png", []byte("plain text, not an image")),
	}

	paths, err := l.stageUploads(files)
	if !errors.Is(err, utils.ErrUnsupportedImage) {
		t.Fatalf("err = %v, want ErrUnsupportedImage", err)
	}
	if paths != nil {
		t.Errorf("paths = %v, want nil on failure", paths)
	}

	entries, err := os.ReadDir(stagedDir())
	if err == nil && len(entries) != 0 {
		t.Errorf("uploads dir not empty after failed staging: %d entries", len(entries))
	}
}

func stagedDir() string {
	return os.Getenv("UPLOAD_DIR") + "/listings"
}

func stagedFSPath(t *testing.T, publicPath string) string {
	t.Helper()
	const prefix = "/uploads/"
	if len(publicPath) <= len(prefix) || publicPath[:len(prefix)] != prefix {
		t.Fatalf("unexpected public path %q", publicPath)
	}
	return os.Getenv("UPLOAD_DIR") + "/" + publicPath[len(prefix):]
}

func TestRetryReadFailure(t *testing.T) {
	status, code, msg := retryReadFailure(gorm.ErrRecordNotFound)
	if status != http.StatusNotFound || code != 40430 {
		t.Errorf("deleted row: got (%d, %d, %q), want 404/40430", status, code, msg)
	}

	status, code, msg = retryReadFailure(errors.New("driver: bad connection"))
	if status != http.StatusConflict || code != 40980 {
		t.Errorf("other failure: got (%d, %d, %q), want 409/40980", status, code, msg)
	}
}
