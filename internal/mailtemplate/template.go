// Package mailtemplate stores the reusable email templates used by bulk and
// single-team sends. Templates are plain subject/body pairs containing
// {{key}} placeholders; rendering lives in package placeholder.
package mailtemplate

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template is one stored template. Name is unique.
type Template struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Subject   string             `bson:"subject" json:"subject"`
	HTMLBody  string             `bson:"htmlBody" json:"htmlBody"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Input carries the writable fields for Create and Update.
type Input struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
}

// Normalize trims the name.
func (in Input) Normalize() Input {
	in.Name = strings.TrimSpace(in.Name)
	return in
}

// Complete reports whether every field is set, as Create requires.
func (in Input) Complete() bool {
	return in.Name != "" && in.Subject != "" && in.HTMLBody != ""
}

// Empty reports whether no field is set.
func (in Input) Empty() bool {
	return in.Name == "" && in.Subject == "" && in.HTMLBody == ""
}

var (
	ErrNotFound      = errors.New("mailtemplate: template not found")
	ErrDuplicateName = errors.New("mailtemplate: template name already exists")
	ErrInvalid       = errors.New("mailtemplate: name, subject and htmlBody are required")
)

// Reader is the read side the dispatcher needs.
type Reader interface {
	Get(ctx context.Context, id string) (Template, error)
}

// Store is the full CRUD surface used by the template API.
type Store interface {
	Reader
	List(ctx context.Context) ([]Template, error)
	Create(ctx context.Context, in Input) (Template, error)
	// Update sets the non-empty fields of in.
	Update(ctx context.Context, id string, in Input) (Template, error)
	Delete(ctx context.Context, id string) error
}
