package templating

import (
	"strings"
)

const (
	sepLeft  = '{'
	sepRight = '}'
)

// Format replaces every {ns.key} token of message found in v. Unknown tokens
// and stray braces are kept verbatim. The message is scanned once from left
// to right, so substituted text is never expanded again.
func Format(message string, v Vocabulary) string {
	var b strings.Builder
	b.Grow(len(message))
	i := 0
	for i < len(message) {
		open := strings.IndexByte(message[i:], sepLeft)
		if open < 0 {
			b.WriteString(message[i:])
			break
		}
		open += i
		b.WriteString(message[i:open])

		end := strings.IndexAny(message[open+1:], "{}")
		if end < 0 {
			b.WriteString(message[open:])
			break
		}
		end += open + 1
		if message[end] == sepLeft {
			// "{abc{": keep the first brace, restart on the inner one.
			b.WriteString(message[open:end])
			i = end
			continue
		}

		if val, ok := lookupToken(v, message[open+1:end]); ok {
			b.WriteString(val)
		} else {
			b.WriteString(message[open : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// FormatHTML formats message then converts line breaks to <br/> and turns
// URLs and e-mail addresses into links.
func FormatHTML(message string, v Vocabulary) string {
	out := Format(message, v)
	return CreateLinks(strings.ReplaceAll(out, "\n", "<br/>\n"))
}

func lookupToken(v Vocabulary, token string) (string, bool) {
	ns, key, ok := strings.Cut(token, ".")
	if !ok || ns == "" || key == "" {
		return "", false
	}
	return v.Lookup(ns, key)
}
