package models

import (
	"reflect"
	"testing"
)

func TestDecodeImageList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty column", "", []string{}},
		{"null json", "null", []string{}},
		{"malformed", "{not json", []string{}},
		{"single", `["/uploads/listings/a.jpg"]`, []string{"/uploads/listings/a.jpg"}},
		{"order preserved", `["b","a","c"]`, []string{"b", "a", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeImageList(tc.raw); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("DecodeImageList(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestEncodeImageList(t *testing.T) {
	if got := EncodeImageList(nil); got != "[]" {
		t.Errorf("EncodeImageList(nil) = %q, want []", got)
	}
	if got := EncodeImageList([]string{"a", "b"}); got != `["a","b"]` {
		t.Errorf("EncodeImageList = %q", got)
	}
}

func TestSetImageListRoundTrip(t *testing.T) {
	var l Listing
	l.SetImageList([]string{"x", "y"})
	if !reflect.DeepEqual(DecodeImageList(l.Images), l.ImageList) {
		t.Errorf("column %q does not round-trip to %v", l.Images, l.ImageList)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusNew, StatusUsed, StatusNeedsRepair} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "NEW", "broken", "repair"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true", s)
		}
	}
}
