package pokedex

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from externally supplied strings before they are
// used as identifiers, class names or text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer returns a sanitizer that allows no markup at all.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text returns s with all tags removed, as plain unescaped text.
// The renderer escapes on output, so entities are decoded here to avoid
// double escaping.
func (s *Sanitizer) Text(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

// Label returns in sanitized like Text, with inner whitespace collapsed to
// single hyphens so the result is one class token.
func (s *Sanitizer) Label(in string) string {
	return strings.Join(strings.Fields(s.Text(in)), "-")
}
