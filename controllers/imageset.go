package controllers

import (
	"encoding/json"
	"mime/multipart"
	"sort"
	"strconv"
	"strings"

	"github.com/bazaarche/bazaarche/models"
)

// listingEdit is the decoded intent of a multipart listing update. Pointer
// fields are nil when the client did not supply a usable value; blank strings
// and non-positive prices are dropped at parse time.
type listingEdit struct {
	Title       *string
	Description *string
	Price       *float64
	Status      *string
	Category    *string
	City        *string

	// ReplaceImages is the explicit full-replacement list from the images
	// field; HasReplaceImages distinguishes "replace with empty" from absent.
	ReplaceImages    []string
	HasReplaceImages bool

	DeleteImages    []string
	DeleteMalformed bool

	// Files are new image parts in image_{n} order.
	Files []*multipart.FileHeader
}

// Empty reports whether the edit carries nothing to apply.
func (e *listingEdit) Empty() bool {
	return e.Title == nil && e.Description == nil && e.Price == nil &&
		e.Status == nil && e.Category == nil && e.City == nil &&
		!e.HasReplaceImages && len(e.DeleteImages) == 0 && len(e.Files) == 0
}

// parseListingEdit converts a multipart form into a typed edit. Invalid
// values degrade to absent fields rather than failing the request; a
// malformed deleteImages list is flagged so the handler can log it.
func parseListingEdit(form *multipart.Form) *listingEdit {
	edit := &listingEdit{}

	if v, ok := formValue(form, "title"); ok {
		edit.Title = &v
	}
	if v, ok := formValue(form, "description"); ok {
		edit.Description = &v
	}
	if v, ok := formValue(form, "price"); ok {
		if price, err := strconv.ParseFloat(v, 64); err == nil && price > 0 {
			edit.Price = &price
		}
	}
	if v, ok := formValue(form, "status"); ok && models.ValidStatus(v) {
		edit.Status = &v
	}
	if v, ok := formValue(form, "category"); ok {
		edit.Category = &v
	}
	if v, ok := formValue(form, "city"); ok {
		edit.City = &v
	}

	if v, ok := formValue(form, "images"); ok {
		var paths []string
		if err := json.Unmarshal([]byte(v), &paths); err == nil {
			if paths == nil {
				paths = []string{}
			}
			edit.ReplaceImages = paths
			edit.HasReplaceImages = true
		}
		// Malformed explicit replacement degrades to absent, same policy
		// as deleteImages below.
	}

	if v, ok := formValue(form, "deleteImages"); ok {
		var paths []string
		if err := json.Unmarshal([]byte(v), &paths); err != nil {
			edit.DeleteMalformed = true
		} else {
			edit.DeleteImages = paths
		}
	}

	edit.Files = imageFileParts(form)
	return edit
}

// formValue returns the first trimmed value of a field, reporting false for
// absent or blank fields.
func formValue(form *multipart.Form, key string) (string, bool) {
	vals, ok := form.Value[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	v := strings.TrimSpace(vals[0])
	if v == "" {
		return "", false
	}
	return v, true
}

// imageFileParts collects image_{n} file parts sorted by n.
func imageFileParts(form *multipart.Form) []*multipart.FileHeader {
	type part struct {
		n  int
		fh *multipart.FileHeader
	}
	var parts []part
	for key, headers := range form.File {
		if !strings.HasPrefix(key, "image_") || len(headers) == 0 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(key, "image_"))
		if err != nil {
			continue
		}
		parts = append(parts, part{n: n, fh: headers[0]})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].n < parts[j].n })
	files := make([]*multipart.FileHeader, 0, len(parts))
	for _, p := range parts {
		files = append(files, p.fh)
	}
	return files
}

// reconcileImages computes the final ordered image list from the stored list,
// the requested deletions, and the stored paths of newly uploaded images.
//
// When the deletion and upload counts match (and are non-zero) each new image
// replaces the slot its paired deletion vacated: deleted paths are ranked by
// their index in the original list, the i-th upload pairs with the i-th
// smallest index, and insertion happens at that index adjusted for the
// removals before it. Insertions run from the highest index down so earlier
// ones do not shift later targets. A pairing whose target cannot be resolved
// (path not present, or adjusted index out of range) appends instead.
//
// In every other case new images are appended after the surviving originals,
// in upload order. The result is not capped here; see capImages.
func reconcileImages(original, toDelete, uploaded []string) []string {
	deleted := make(map[string]struct{}, len(toDelete))
	for _, p := range toDelete {
		deleted[p] = struct{}{}
	}

	final := make([]string, 0, len(original)+len(uploaded))
	for _, p := range original {
		if _, ok := deleted[p]; !ok {
			final = append(final, p)
		}
	}

	if len(uploaded) == 0 {
		return final
	}
	if len(toDelete) == 0 || len(toDelete) != len(uploaded) {
		return append(final, uploaded...)
	}

	// Positional replacement path.
	indices := make([]int, 0, len(toDelete))
	for _, p := range toDelete {
		indices = append(indices, indexOf(original, p))
	}
	sort.Ints(indices)

	var overflow []string
	for i := len(indices) - 1; i >= 0; i-- {
		origIdx := indices[i]
		img := uploaded[i]
		if origIdx < 0 {
			overflow = append([]string{img}, overflow...)
			continue
		}
		insert := origIdx - countLess(indices, origIdx)
		if insert < 0 || insert > len(final) {
			overflow = append([]string{img}, overflow...)
			continue
		}
		final = append(final, "")
		copy(final[insert+1:], final[insert:])
		final[insert] = img
	}
	return append(final, overflow...)
}

// capImages enforces the image count limit, returning the kept prefix and
// whatever was silently dropped from the end.
func capImages(list []string) (kept, dropped []string) {
	if len(list) <= models.MaxListingImages {
		return list, nil
	}
	return list[:models.MaxListingImages], list[models.MaxListingImages:]
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// countLess counts resolved indices strictly below n.
func countLess(sorted []int, n int) int {
	count := 0
	for _, v := range sorted {
		if v >= 0 && v < n {
			count++
		}
	}
	return count
}
