package feed

import (
	"github.com/microcosm-cc/bluemonday"
)

type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the allow-list used for episode show notes: basic
// inline formatting, lists and links. Scripts and styles are dropped along
// with their contents.
func NewSanitizer() *Sanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "br", "b", "i", "em", "strong", "a", "ul", "ol", "li")
	policy.AllowAttrs("href", "target", "rel").OnElements("a")
	policy.RequireParseableURLs(true)
	policy.AllowRelativeURLs(true)
	policy.AllowURLSchemes("mailto", "http", "https")

	return &Sanitizer{policy: policy}
}

func (s *Sanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}
