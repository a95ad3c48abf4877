// Package types holds the data model shared by the quiz generator: questions,
// the stored question bank, and duplicate rejections.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// LegacyAddedAt is the timestamp assigned to questions stored before addedAt existed.
const LegacyAddedAt = "2026-01-01T00:00:00.000Z"

// Question is a single trivia-quiz question as stored in the bank.
// JSON keys match the published questions.json document. Keys the struct
// does not model (explanations, difficulty...) are kept in Extra and written
// back after the known fields.
type Question struct {
	Text          string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"len=4,dive,required"`
	CorrectAnswer int      `json:"correctAnswer" validate:"min=0,max=3"`
	Category      string   `json:"category,omitempty"`
	ID            string   `json:"id,omitempty"`
	AddedAt       string   `json:"addedAt,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var questionKeys = map[string]bool{
	"question":      true,
	"options":       true,
	"correctAnswer": true,
	"category":      true,
	"id":            true,
	"addedAt":       true,
}

type questionAlias Question

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (q *Question) UnmarshalJSON(data []byte) error {
	var alias questionAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := splitExtra(data, questionKeys)
	if err != nil {
		return err
	}
	*q = Question(alias)
	q.Extra = extra
	return nil
}

// MarshalJSON encodes the known fields followed by any preserved extra keys.
func (q Question) MarshalJSON() ([]byte, error) {
	known, err := marshalNoEscape(questionAlias(q))
	if err != nil {
		return nil, err
	}
	return appendExtra(known, q.Extra, questionKeys)
}

var questionValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
})

// Validate checks the question contract: text, exactly four non-empty options
// and a correct answer index that points at one of them. Problems are listed
// as "field:rule" pairs, e.g. "options[1]:required".
func (q *Question) Validate() error {
	err := questionValidator().Struct(q)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	parts := make([]string, len(ve))
	for i, fe := range ve {
		parts[i] = strings.TrimPrefix(fe.Namespace(), "Question.") + ":" + fe.Tag()
	}
	return fmt.Errorf("invalid question: %s", strings.Join(parts, ", "))
}

// AddedTime parses AddedAt. Missing or malformed timestamps sort as LegacyAddedAt.
func (q *Question) AddedTime() time.Time {
	if q.AddedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, q.AddedAt); err == nil {
			return t
		}
	}
	t, _ := time.Parse(time.RFC3339Nano, LegacyAddedAt)
	return t
}

// Texts returns the question texts in order.
func Texts(qs []Question) []string {
	out := make([]string, len(qs))
	for i := range qs {
		out[i] = qs[i].Text
	}
	return out
}

// FormatTimestamp renders t the way addedAt and last_updated are stored
// (UTC, millisecond precision).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
