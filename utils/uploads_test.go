package utils

import (
	"bytes"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "uploads-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("UPLOAD_DIR", dir)
	os.Setenv("UPLOAD_MAX_IMAGE_MB", "1")

	Logger = zap.NewNop()
	Sugar = Logger.Sugar()

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// fileHeader builds a *multipart.FileHeader carrying content, the same way
// the http package produces one from a parsed request body.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
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

func TestSaveListingImagePNG(t *testing.T) {
	fh := fileHeader(t, "photo.png", append(pngHead, bytes.Repeat([]byte{0}, 100)...))

	publicPath, err := SaveListingImage(fh)
	if err != nil {
		t.Fatalf("SaveListingImage: %v", err)
	}
	if !strings.HasPrefix(publicPath, ListingUploadsPrefix) {
		t.Errorf("path %q should start with %q", publicPath, ListingUploadsPrefix)
	}
	if !strings.HasSuffix(publicPath, ".png") {
		t.Errorf("path %q should carry the sniffed extension", publicPath)
	}
	// The client name must not leak into the stored name.
	if strings.Contains(publicPath, "photo") {
		t.Errorf("path %q reuses the client filename", publicPath)
	}

	fsPath, err := uploadFSPath(publicPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(fsPath); err != nil {
		t.Errorf("saved file missing: %v", err)
	}

	if err := RemoveUpload(publicPath); err != nil {
		t.Fatalf("RemoveUpload: %v", err)
	}
	if _, err := os.Stat(fsPath); !os.IsNotExist(err) {
		t.Error("file still present after removal")
	}
	// Removing twice is a no-op.
	if err := RemoveUpload(publicPath); err != nil {
		t.Errorf("second RemoveUpload: %v", err)
	}
}

func TestSaveListingImageSniffsNotTrusts(t *testing.T) {
	// A text payload with an image extension is rejected.
	fh := fileHeader(t, "fake.jpg", []byte("hello, this is not an image at all"))
	if _, err := SaveListingImage(fh); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("err = %v, want ErrUnsupportedImage", err)
	}

	// A GIF payload with a misleading name is accepted and stored as .gif.
	fh = fileHeader(t, "notes.txt", []byte("GIF89a\x01\x00\x01\x00"))
	publicPath, err := SaveListingImage(fh)
	if err != nil {
		t.Fatalf("SaveListingImage: %v", err)
	}
	if !strings.HasSuffix(publicPath, ".gif") {
		t.Errorf("path %q should end in .gif", publicPath)
	}
	RemoveUpload(publicPath)
}

func TestSaveListingImageTooLarge(t *testing.T) {
	content := append(pngHead, bytes.Repeat([]byte{0}, 1<<20)...)
	fh := fileHeader(t, "big.png", content)
	if _, err := SaveListingImage(fh); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("err = %v, want ErrImageTooLarge", err)
	}
}

func TestSaveListingImageUniqueNames(t *testing.T) {
	content := append(pngHead, []byte("x")...)
	a, err := SaveListingImage(fileHeader(t, "same.png", content))
	if err != nil {
		t.Fatal(err)
	}
	b, err := SaveListingImage(fileHeader(t, "same.png", content))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("identical uploads produced the same path %q", a)
	}
	RemoveUpload(a)
	RemoveUpload(b)
}

func TestUploadFSPathRejectsEscape(t *testing.T) {
	for _, p := range []string{
		"/etc/passwd",
		"/uploads/../etc/passwd",
		"/uploads/listings/../../secret",
		"uploads/",
		"",
	} {
		if _, err := uploadFSPath(p); err == nil {
			t.Errorf("uploadFSPath(%q) accepted a path outside the uploads dir", p)
		}
	}
}

func TestUploadFSPathMapsUnderUploadDir(t *testing.T) {
	fsPath, err := uploadFSPath("/uploads/listings/abc.jpg")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(os.Getenv("UPLOAD_DIR"), "listings", "abc.jpg")
	if fsPath != want {
		t.Errorf("fsPath = %q, want %q", fsPath, want)
	}
}
