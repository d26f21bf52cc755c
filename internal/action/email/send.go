package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gyaneshwarpardhi/formplugins/internal/action"
	"github.com/gyaneshwarpardhi/formplugins/internal/mail"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
)

// Type is the action type of SendAction.
const Type = "send_email"

// SendAction handles "send_email" actions. Params:
//   - recipient_list: comma separated addresses or placeholders (required)
//   - subject, message: templated text (required)
//   - from_email, reply_to: optional addresses
type SendAction struct {
	sender mail.Sender
}

func New(sender mail.Sender) *SendAction { return &SendAction{sender: sender} }

func (a *SendAction) Type() string { return Type }

func (a *SendAction) Validate(params map[string]any) error {
	var errs []error
	for _, key := range []string{"recipient_list", "subject", "message"} {
		if strings.TrimSpace(str(params, key)) == "" {
			errs = append(errs, errors.Newf("%s: %q is required", Type, key))
		}
	}
	for _, key := range []string{"recipient_list", "from_email", "reply_to"} {
		v := str(params, key)
		if v == "" {
			continue
		}
		if err := mail.ValidateAddressList(v); err != nil {
			errs = append(errs, errors.Wrapf(err, "%s: %s", Type, key))
		}
	}
	for _, key := range []string{"subject", "message"} {
		if _, err := templating.ContainsTemplate(str(params, key)); err != nil && !braceOnly(err) {
			errs = append(errs, errors.Wrapf(err, "%s: %s", Type, key))
		}
	}
	return errors.Join(errs...)
}

func (a *SendAction) Execute(
	ctx context.Context,
	actionID string,
	params map[string]any,
	actx *action.Context,
) (*action.ActionResult, error) {
	message := str(params, "message")
	m := mail.Build(
		templating.Format(str(params, "subject"), actx.Text),
		templating.Format(message, actx.Text),
		str(params, "from_email"),
		templating.Format(str(params, "recipient_list"), actx.Text),
		str(params, "reply_to"),
		templating.FormatHTML(message, actx.HTML),
	)

	if err := a.sender.Send(ctx, m); err != nil {
		return &action.ActionResult{
			ActionID: actionID,
			Type:     a.Type(),
			Success:  false,
			Message:  err.Error(),
		}, err
	}
	return &action.ActionResult{
		ActionID: actionID,
		Type:     a.Type(),
		Success:  true,
		Message:  fmt.Sprintf("sent %q to %s", m.Subject, strings.Join(m.To, ", ")),
	}, nil
}

// braceOnly reports whether err is only about braces outside tokens, which
// free text such as a message body may legitimately contain.
func braceOnly(err error) bool {
	var se *templating.SyntaxError
	return errors.As(err, &se) && se.Token == ""
}

func str(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}
