package middleware

import "testing"

func TestListingIDFromPath(t *testing.T) {
	cases := []struct {
		path   string
		wantID uint
		wantOK bool
	}{
		{"/api/v1/listings/42", 42, true},
		{"/api/v1/listings/1", 1, true},
		{"/api/v1/listings/", 0, false},
		{"/api/v1/listings/abc", 0, false},
		{"/api/v1/listings/42/stats", 0, false},
		{"/api/v1/listings/42/messages", 0, false},
		{"/api/v1/listings", 0, false},
		{"/api/v1/stores/42", 0, false},
		{"/api/v1/listings/-1", 0, false},
	}
	for _, tc := range cases {
		id, ok := listingIDFromPath(tc.path)
		if id != tc.wantID || ok != tc.wantOK {
			t.Errorf("listingIDFromPath(%q) = (%d, %v), want (%d, %v)", tc.path, id, ok, tc.wantID, tc.wantOK)
		}
	}
}
