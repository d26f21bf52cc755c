package action

import (
	"context"

	"github.com/gyaneshwarpardhi/formplugins/internal/form"
	"github.com/gyaneshwarpardhi/formplugins/internal/templating"
)

// ActionResult holds the outcome of executing a single action.
type ActionResult struct {
	ActionID string `json:"action_id"`
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// Context carries the submission an action reacts to, with the template
// vocabularies built for it.
type Context struct {
	Submission *form.Submission
	Text       templating.Vocabulary
	HTML       templating.Vocabulary
}

// Executor is the interface all action implementations must satisfy.
type Executor interface {
	// Type returns the string key this executor is registered under.
	Type() string
	// Execute runs the action and returns a result.
	Execute(ctx context.Context, actionID string, params map[string]any, actx *Context) (*ActionResult, error)
	// Validate checks params at config load time.
	Validate(params map[string]any) error
}
