// Package sanitize strips markup from user-supplied text before it is
// persisted or broadcast. Chat content is plain text; anything that looks
// like HTML is removed rather than escaped downstream by every consumer.
package sanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text removes all HTML elements and attributes from s. The strict policy
// entity-escapes whatever text survives, so the result is unescaped again:
// stored content stays plain text and escaping is left to renderers.
func Text(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}
