package form

import "time"

// User identifies the person filling a form or owning it.
// An empty Login is the anonymous user.
type User struct {
	Login     string `yaml:"login" json:"login"`
	FirstName string `yaml:"first_name" json:"first_name"`
	LastName  string `yaml:"last_name" json:"last_name"`
	Email     string `yaml:"email" json:"email" validate:"omitempty,email"`
}

// Anonymous reports whether u is the anonymous user.
func (u User) Anonymous() bool { return u.Login == "" }

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Submission is one stored answer to a form. Data only carries values for
// fields that were enabled when the form was submitted; others are nil.
type Submission struct {
	ID          string         `json:"id"`
	FormSlug    string         `json:"form_slug"`
	Index       uint64         `json:"index"`
	User        string         `json:"user,omitempty"`
	Email       string         `json:"email,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
	Data        map[string]any `json:"form_data"`
}
