package templating

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
)

// ErrTemplateSyntax is wrapped by every *SyntaxError.
var ErrTemplateSyntax = errors.New("template syntax error")

// SyntaxError reports a malformed template found at authoring time.
type SyntaxError struct {
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("%v: %s", ErrTemplateSyntax, e.Reason)
	}
	return fmt.Sprintf("%v: %q: %s", ErrTemplateSyntax, e.Token, e.Reason)
}

func (e *SyntaxError) Unwrap() error { return ErrTemplateSyntax }

// ContainsTemplate reports whether text references a template token.
//
// Fixed tokens ({user.login}, {form.title}, ...) are matched literally. A
// field_label or field_value token is accepted when its suffix is already a
// slug; every such token is checked and any other suffix is a *SyntaxError. Text without any token but with
// a brace is a *SyntaxError as well.
func ContainsTemplate(text string) (bool, error) {
	found := false
	for _, ns := range dynamicNamespaces {
		prefix := string(sepLeft) + ns + "."
		for rest := text; ; {
			i := strings.Index(rest, prefix)
			if i < 0 {
				break
			}
			rest = rest[i+len(prefix):]
			suffix, _, _ := strings.Cut(rest, string(sepRight))
			if suffix == "" {
				continue
			}
			if !form.IsSlug(suffix) {
				return false, &SyntaxError{
					Token:  ns + "." + suffix,
					Reason: "slugs must only contain lower-case letters, digits or underscore",
				}
			}
			found = true
		}
	}
	if found {
		return true, nil
	}

	for _, d := range docs {
		if isDynamic(d.Namespace) {
			continue
		}
		if strings.Contains(text, d.Token()) {
			return true, nil
		}
	}

	if strings.ContainsAny(text, string(sepLeft)+string(sepRight)) {
		return false, &SyntaxError{Reason: "unmatched brace outside of a known token"}
	}
	return false, nil
}
