package templating

import (
	"regexp"
	"strings"
)

var linkPattern = regexp.MustCompile(
	`(https?://(?:www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b[-a-zA-Z0-9()@:%_+.~#?&/=]*)` +
		`|([\w.-]+@[\w.-]+)`,
)

// CreateLinks wraps URLs and e-mail addresses found in an HTML message into
// anchors. Both are matched in one pass so addresses inside URLs are left
// alone.
func CreateLinks(html string) string {
	return linkPattern.ReplaceAllStringFunc(html, func(m string) string {
		if strings.HasPrefix(m, "http://") || strings.HasPrefix(m, "https://") {
			return `<a href="` + m + `">` + m + `</a>`
		}
		return `<a href="mailto:` + m + `">` + m + `</a>`
	})
}
