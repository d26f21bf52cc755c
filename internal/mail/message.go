package mail

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
)

var (
	validate = validator.New()
	tagRe    = regexp.MustCompile(`<[^>]*>`)
)

// ErrInvalidAddress is returned for list entries that are neither an e-mail
// address nor a template placeholder.
var ErrInvalidAddress = errors.New("invalid e-mail address")

// Message is an outbound e-mail.
type Message struct {
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	HTMLBody string   `json:"html_body,omitempty"`
	From     string   `json:"from"`
	To       []string `json:"to"`
	ReplyTo  []string `json:"reply_to,omitempty"`
}

// Build assembles a message. Address lists are comma separated. The plain
// body is the text message with HTML tags removed; html defaults to it.
func Build(subject, message, from, to, replyTo, html string) Message {
	if html == "" {
		html = message
	}
	return Message{
		Subject:  subject,
		Body:     tagRe.ReplaceAllString(strings.ReplaceAll(message, "</p>", "\n"), ""),
		HTMLBody: html,
		From:     from,
		To:       SplitAddresses(to),
		ReplyTo:  SplitAddresses(replyTo),
	}
}

// SplitAddresses splits a comma separated list, dropping blank entries.
func SplitAddresses(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// ValidateAddressList checks every entry of a comma separated list: it must
// be a template placeholder or a valid e-mail address. Template syntax
// errors are returned as is.
func ValidateAddressList(list string) error {
	for _, a := range strings.Split(list, ",") {
		a = strings.TrimSpace(a)
		isTemplate, err := templating.ContainsTemplate(a)
		if err != nil {
			return err
		}
		if isTemplate {
			continue
		}
		if err := validate.Var(a, "required,email"); err != nil {
			return errors.Wrapf(ErrInvalidAddress, "%q", a)
		}
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes messages to a logger instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

// NewLogSender returns a LogSender using logger, or the default logger.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{Logger: logger}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return errors.New("message has no recipient")
	}
	s.Logger.InfoContext(ctx, "sending e-mail",
		"subject", m.Subject,
		"from", m.From,
		"to", strings.Join(m.To, ", "),
		"reply_to", strings.Join(m.ReplyTo, ", "),
		"body", m.Body,
	)
	return nil
}
