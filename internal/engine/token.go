package engine

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
	"github.com/gyaneshwarpardhi/formplugins/internal/mail"
	"github.com/gyaneshwarpardhi/formplugins/internal/plugin"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
	"github.com/gyaneshwarpardhi/formplugins/internal/token"
)

// IssueToken creates a validation token for address and e-mails the form link
// carrying it. The token itself is never returned to the caller.
func (e *Engine) IssueToken(ctx context.Context, slug, address string) error {
	e.sweep()
	p, err := e.page(slug)
	if err != nil {
		return err
	}
	if !p.def.Uses(plugin.TokenValidation) {
		return errors.Wrapf(ErrPluginOff, "%s on %s", plugin.TokenValidation, slug)
	}
	address = strings.TrimSpace(address)
	if err := mail.ValidateAddressList(address); err != nil || address == "" || strings.ContainsAny(address, "{,") {
		return errors.Wrapf(token.ErrInvalidEmail, "%q", address)
	}

	tok, err := e.tokens.Issue(address)
	if err != nil {
		return err
	}
	link := p.def.URL(p.cfg.Engine.BaseURL) + "?token=" + url.QueryEscape(tok)

	v := p.def.Validation
	vocab := templating.NewVocabulary(templating.Source{
		User:   form.User{},
		Author: p.cfg.User(p.def.Owner),
		Form:   p.info(),
	}, false)
	subject, body := v.Title, v.Body
	if p.def.Uses(plugin.Templating) {
		subject = templating.Format(subject, vocab)
		body = templating.Format(body, vocab)
	}
	body = strings.ReplaceAll(body, "{validation_url}", link)

	m := mail.Build(subject, body, v.FromEmail, address, v.ReplyTo, templating.CreateLinks(body))
	if err := e.sender.Send(ctx, m); err != nil {
		return errors.Wrapf(err, "send validation e-mail for %s", slug)
	}
	e.logger.Info("validation token issued", "form", slug)
	return nil
}

// CheckToken reports whether tok may still be used to submit a form.
func (e *Engine) CheckToken(tok string) bool {
	e.sweep()
	return e.tokens.Valid(tok)
}
