package controllers

import (
	"mime/multipart"
	"os"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/bazaarche/bazaarche/utils"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "listing-uploads-test")
	if err != nil {
		panic(err)
	}
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("UPLOAD_DIR", dir)

	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestReconcileImagesDeleteOnly(t *testing.T) {
	cases := []struct {
		name     string
		original []string
		toDelete []string
		want     []string
	}{
		{"single", []string{"A", "B", "C"}, []string{"B"}, []string{"A", "C"}},
		{"multiple", []string{"A", "B", "C", "D"}, []string{"A", "C"}, []string{"B", "D"}},
		{"all", []string{"A"}, []string{"A"}, []string{}},
		{"none", []string{"A", "B"}, nil, []string{"A", "B"}},
		{"missing path is a no-op", []string{"A", "B"}, []string{"X"}, []string{"A", "B"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reconcileImages(tc.original, tc.toDelete, nil)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("reconcileImages(%v, %v, nil) = %v, want %v", tc.original, tc.toDelete, got, tc.want)
			}
		})
	}
}

func TestReconcileImagesPositionalReplacement(t *testing.T) {
	cases := []struct {
		name     string
		original []string
		toDelete []string
		uploaded []string
		want     []string
	}{
		{
			name:     "middle slot",
			original: []string{"A", "B", "C"},
			toDelete: []string{"B"},
			uploaded: []string{"NEW"},
			want:     []string{"A", "NEW", "C"},
		},
		{
			name:     "first slot",
			original: []string{"A", "B"},
			toDelete: []string{"A"},
			uploaded: []string{"NEW"},
			want:     []string{"NEW", "B"},
		},
		{
			name:     "last slot",
			original: []string{"A", "B"},
			toDelete: []string{"B"},
			uploaded: []string{"NEW"},
			want:     []string{"A", "NEW"},
		},
		{
			name:     "two slots pair by ascending index",
			original: []string{"A", "B", "C", "D"},
			toDelete: []string{"D", "B"},
			uploaded: []string{"N1", "N2"},
			want:     []string{"A", "N1", "C", "N2"},
		},
		{
			name:     "adjacent slots",
			original: []string{"A", "B", "C"},
			toDelete: []string{"A", "B"},
			uploaded: []string{"N1", "N2"},
			want:     []string{"N1", "N2", "C"},
		},
		{
			name:     "deleted path not stored appends instead",
			original: []string{"A", "B"},
			toDelete: []string{"X"},
			uploaded: []string{"NEW"},
			want:     []string{"A", "B", "NEW"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reconcileImages(tc.original, tc.toDelete, tc.uploaded)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("reconcileImages(%v, %v, %v) = %v, want %v", tc.original, tc.toDelete, tc.uploaded, got, tc.want)
			}
		})
	}
}

func TestReconcileImagesAppend(t *testing.T) {
	cases := []struct {
		name     string
		original []string
		toDelete []string
		uploaded []string
		want     []string
	}{
		{
			name:     "pure append keeps upload order",
			original: []string{"A", "B"},
			uploaded: []string{"N1", "N2"},
			want:     []string{"A", "B", "N1", "N2"},
		},
		{
			name:     "unequal counts delete then append",
			original: []string{"A", "B", "C", "D"},
			toDelete: []string{"A", "B"},
			uploaded: []string{"N1", "N2", "N3"},
			want:     []string{"C", "D", "N1", "N2", "N3"},
		},
		{
			name:     "append into empty list",
			original: nil,
			uploaded: []string{"N1"},
			want:     []string{"N1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reconcileImages(tc.original, tc.toDelete, tc.uploaded)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("reconcileImages(%v, %v, %v) = %v, want %v", tc.original, tc.toDelete, tc.uploaded, got, tc.want)
			}
		})
	}
}

// Deleting paths that were already removed must not change the list again.
func TestReconcileImagesIdempotentDeletes(t *testing.T) {
	original := []string{"A", "B", "C"}
	first := reconcileImages(original, []string{"B"}, nil)
	second := reconcileImages(first, []string{"B"}, nil)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second deletion changed result: %v != %v", second, first)
	}
}

func TestCapImages(t *testing.T) {
	kept, dropped := capImages([]string{"A", "B", "C", "D", "E", "F"})
	if want := []string{"A", "B", "C", "D"}; !reflect.DeepEqual(kept, want) {
		t.Errorf("kept = %v, want %v", kept, want)
	}
	if want := []string{"E", "F"}; !reflect.DeepEqual(dropped, want) {
		t.Errorf("dropped = %v, want %v", dropped, want)
	}

	kept, dropped = capImages([]string{"A"})
	if len(kept) != 1 || dropped != nil {
		t.Errorf("short list should pass through, got kept=%v dropped=%v", kept, dropped)
	}
}

// Unequal delete/upload counts combined with the cap: deletions first, then
// append, then truncate to four.
func TestFinalImageSetTruncates(t *testing.T) {
	edit := &listingEdit{DeleteImages: []string{"A", "B"}}
	final, changed := finalImageSet(
		[]string{"A", "B", "C", "D"},
		edit,
		[]string{"N1", "N2", "N3"},
	)
	if !changed {
		t.Fatal("expected image change")
	}
	if want := []string{"C", "D", "N1", "N2"}; !reflect.DeepEqual(final, want) {
		t.Errorf("final = %v, want %v", final, want)
	}
}

// A malformed deleteImages field degrades to "no deletions": uploads are
// appended and nothing is removed.
func TestFinalImageSetMalformedDeletes(t *testing.T) {
	form := &multipart.Form{
		Value: map[string][]string{"deleteImages": {"{not json"}},
		File:  map[string][]*multipart.FileHeader{"image_0": {{Filename: "new.jpg"}}},
	}
	edit := parseListingEdit(form)
	if !edit.DeleteMalformed {
		t.Fatal("expected DeleteMalformed flag")
	}
	if len(edit.DeleteImages) != 0 {
		t.Fatalf("malformed deletes should be empty, got %v", edit.DeleteImages)
	}

	final, changed := finalImageSet([]string{"A", "B"}, edit, []string{"NEW"})
	if !changed {
		t.Fatal("expected image change")
	}
	if want := []string{"A", "B", "NEW"}; !reflect.DeepEqual(final, want) {
		t.Errorf("final = %v, want %v", final, want)
	}
}

func TestFinalImageSetExplicitReplacement(t *testing.T) {
	edit := &listingEdit{
		ReplaceImages:    []string{"X", "Y", "Z", "W", "V"},
		HasReplaceImages: true,
	}
	final, changed := finalImageSet([]string{"A"}, edit, nil)
	if !changed {
		t.Fatal("expected image change")
	}
	if want := []string{"X", "Y", "Z", "W"}; !reflect.DeepEqual(final, want) {
		t.Errorf("final = %v, want %v", final, want)
	}
}

func TestFinalImageSetNoImageEdit(t *testing.T) {
	original := []string{"A", "B"}
	price := 10.0
	final, changed := finalImageSet(original, &listingEdit{Price: &price}, nil)
	if changed {
		t.Fatal("field-only edit must not touch images")
	}
	if !reflect.DeepEqual(final, original) {
		t.Errorf("final = %v, want %v", final, original)
	}
}

func TestParseListingEditFields(t *testing.T) {
	form := &multipart.Form{
		Value: map[string][]string{
			"title":        {"  Bike  "},
			"description":  {""},
			"price":        {"1500"},
			"status":       {"used"},
			"deleteImages": {`["/uploads/listings/a.jpg"]`},
		},
		File: map[string][]*multipart.FileHeader{},
	}
	edit := parseListingEdit(form)

	if edit.Title == nil || *edit.Title != "Bike" {
		t.Errorf("Title = %v, want Bike", edit.Title)
	}
	if edit.Description != nil {
		t.Error("blank description should be dropped")
	}
	if edit.Price == nil || *edit.Price != 1500 {
		t.Errorf("Price = %v, want 1500", edit.Price)
	}
	if edit.Status == nil || *edit.Status != "used" {
		t.Errorf("Status = %v, want used", edit.Status)
	}
	if want := []string{"/uploads/listings/a.jpg"}; !reflect.DeepEqual(edit.DeleteImages, want) {
		t.Errorf("DeleteImages = %v, want %v", edit.DeleteImages, want)
	}
	if edit.Empty() {
		t.Error("edit with fields must not be empty")
	}
}

func TestParseListingEditDropsInvalid(t *testing.T) {
	cases := []struct {
		name  string
		value map[string][]string
	}{
		{"negative price", map[string][]string{"price": {"-5"}}},
		{"zero price", map[string][]string{"price": {"0"}}},
		{"non-numeric price", map[string][]string{"price": {"abc"}}},
		{"unknown status", map[string][]string{"status": {"broken"}}},
		{"blank title", map[string][]string{"title": {"   "}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			edit := parseListingEdit(&multipart.Form{Value: tc.value, File: map[string][]*multipart.FileHeader{}})
			if !edit.Empty() {
				t.Errorf("invalid field should leave the edit empty: %+v", edit)
			}
		})
	}
}

func TestParseListingEditFileOrder(t *testing.T) {
	form := &multipart.Form{
		Value: map[string][]string{},
		File: map[string][]*multipart.FileHeader{
			"image_2":   {{Filename: "c.jpg"}},
			"image_0":   {{Filename: "a.jpg"}},
			"image_10":  {{Filename: "k.jpg"}},
			"image_1":   {{Filename: "b.jpg"}},
			"image_bad": {{Filename: "skip.jpg"}},
			"avatar":    {{Filename: "skip2.jpg"}},
		},
	}
	edit := parseListingEdit(form)
	var names []string
	for _, fh := range edit.Files {
		names = append(names, fh.Filename)
	}
	if want := []string{"a.jpg", "b.jpg", "c.jpg", "k.jpg"}; !reflect.DeepEqual(names, want) {
		t.Errorf("file order = %v, want %v", names, want)
	}
}

func TestParseListingEditExplicitImages(t *testing.T) {
	form := &multipart.Form{
		Value: map[string][]string{"images": {`["/uploads/listings/x.jpg"]`}},
		File:  map[string][]*multipart.FileHeader{},
	}
	edit := parseListingEdit(form)
	if !edit.HasReplaceImages {
		t.Fatal("expected explicit replacement")
	}
	if want := []string{"/uploads/listings/x.jpg"}; !reflect.DeepEqual(edit.ReplaceImages, want) {
		t.Errorf("ReplaceImages = %v, want %v", edit.ReplaceImages, want)
	}

	// Malformed explicit list degrades to absent.
	form = &multipart.Form{
		Value: map[string][]string{"images": {"not-json"}},
		File:  map[string][]*multipart.FileHeader{},
	}
	edit = parseListingEdit(form)
	if edit.HasReplaceImages {
		t.Error("malformed images field should be ignored")
	}
	if !edit.Empty() {
		t.Error("nothing else supplied, edit should be empty")
	}
}

func TestRemovedImagePaths(t *testing.T) {
	got := removedImagePaths(
		[]string{"A", "B", "C"},
		[]string{"N1", "N2"},
		[]string{"A", "N1"},
	)
	if want := []string{"B", "C", "N2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("removedImagePaths = %v, want %v", got, want)
	}
}
