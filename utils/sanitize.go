package utils

import "github.com/microcosm-cc/bluemonday"

var (
	ugcPolicy   = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user-generated HTML (descriptions, messages, comments,
// bios) down to a safe markup subset.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeStrict strips all markup. Used for fields rendered as plain text
// everywhere, like listing titles and store names.
func SanitizeStrict(input string) string {
	return plainPolicy.Sanitize(input)
}
