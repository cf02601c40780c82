// Package utils holds small text-sanitization helpers applied to
// free-text admit fields (customer form name, contact, address and
// similar details) before they are persisted.
package utils

import (
	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer strips markup from customer-supplied free text.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer builds a strict sanitizer: admit-path free text
// (customer form names and contact details) carries no formatting, so anything beyond
// plain characters is stripped rather than allow-listed.
func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize strips all markup from s.
func (s *HTMLSanitizer) Sanitize(s2 string) string {
	return s.policy.Sanitize(s2)
}

// StripHTML removes all HTML tags and returns plain text.
func StripHTML(html string) string {
	return bluemonday.StrictPolicy().Sanitize(html)
}
