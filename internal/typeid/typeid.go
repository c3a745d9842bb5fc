// Package typeid issues prefixed, time-sortable ids such as
// "proj_01jd3s0m8xf4t9q2v6k7c5b1ze".
package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

type Prefix string

const (
	User    Prefix = "user"
	Project Prefix = "proj"
	Version Prefix = "ver"
	Stroke  Prefix = "stroke"
	Shape   Prefix = "shape"
	Session Prefix = "sess"
)

func (p Prefix) New() string {
	return typeid.MustGenerate(string(p)).String()
}

// Is reports whether id is a well-formed id carrying prefix p.
func (p Prefix) Is(id string) bool {
	return Check(id, p) == nil
}

func Check(id string, p Prefix) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != string(p) {
		return fmt.Errorf("id %q has prefix %q, want %q", id, parsed.Prefix(), p)
	}
	return nil
}

func NewUserID() string    { return User.New() }
func NewProjectID() string { return Project.New() }
func NewVersionID() string { return Version.New() }
func NewStrokeID() string  { return Stroke.New() }
func NewShapeID() string   { return Shape.New() }
func NewSessionID() string { return Session.New() }
