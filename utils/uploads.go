package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bazaarche/bazaarche/config"
)

// Upload errors surfaced to handlers.
var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
)

// ListingUploadsPrefix is the public URL prefix under which listing images
// are served.
const ListingUploadsPrefix = "/uploads/listings/"

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SaveListingImage stores an uploaded file under the listing uploads
// directory and returns its public path. The content type is sniffed from
// magic bytes; the client-supplied filename and extension are never trusted.
// Filenames are uuid-based so concurrent uploads cannot collide.
func SaveListingImage(fh *multipart.FileHeader) (string, error) {
	cfg := config.Get()
	maxSize := int64(cfg.UploadMaxImageMB) * 1024 * 1024
	if fh.Size > 0 && fh.Size > maxSize {
		return "", ErrImageTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	head = head[:n]

	ext, ok := imageExtensions[sniffContentType(head)]
	if !ok {
		return "", ErrUnsupportedImage
	}

	dir := filepath.Join(cfg.UploadDir, "listings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	dstPath := filepath.Join(dir, name)
	out, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := out.Write(head); err != nil {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return "", err
	}

	lr := &io.LimitedReader{R: src, N: maxSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return "", err
	}
	if written+int64(len(head)) > maxSize {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return "", ErrImageTooLarge
	}

	return ListingUploadsPrefix + name, nil
}

// RemoveUpload deletes a stored upload by its public path. Removing a path
// that no longer exists is a no-op, so repeated cleanup passes are safe.
func RemoveUpload(publicPath string) error {
	fsPath, err := uploadFSPath(publicPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fsPath); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(fsPath)
}

// uploadFSPath maps a public /uploads/... path to its on-disk location,
// rejecting anything that escapes the uploads directory.
func uploadFSPath(publicPath string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimPrefix(publicPath, "/"))
	if !strings.HasPrefix(cleaned, "/uploads/") {
		return "", fmt.Errorf("not an upload path: %s", publicPath)
	}
	rel := strings.TrimPrefix(cleaned, "/uploads/")
	if rel == "" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid upload path: %s", publicPath)
	}
	return filepath.Join(config.Get().UploadDir, filepath.FromSlash(rel)), nil
}

// sniffContentType normalizes http.DetectContentType output for matching
// against the accepted image set.
func sniffContentType(head []byte) string {
	ct := http.DetectContentType(head)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
