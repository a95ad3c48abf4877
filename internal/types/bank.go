package types

import (
	"encoding/json"
	"fmt"
)

// Bank is the stored questions.json document.
//
// Questions is the active pool served to players. ArchivedQuestions holds
// questions rotated out of the pool; they still count for duplicate detection
// when the caller includes them in the corpus. Keys the bank does not know
// about are carried through Extra so a load/save round trip never drops data.
type Bank struct {
	Questions         []Question `json:"questions"`
	ArchivedQuestions []Question `json:"archivedQuestions,omitempty"`
	PoolSize          int        `json:"poolSize,omitempty"`
	Version           int        `json:"version,omitempty"`
	LastUpdated       string     `json:"last_updated,omitempty"`
	LastCleaned       string     `json:"last_cleaned,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var bankKeys = map[string]bool{
	"questions":         true,
	"archivedQuestions": true,
	"poolSize":          true,
	"version":           true,
	"last_updated":      true,
	"last_cleaned":      true,
}

// bankAlias drops the methods so encoding/json does not recurse.
type bankAlias Bank

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (b *Bank) UnmarshalJSON(data []byte) error {
	var alias bankAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := splitExtra(data, bankKeys)
	if err != nil {
		return err
	}
	*b = Bank(alias)
	b.Extra = extra
	return nil
}

// MarshalJSON encodes the known fields in declaration order followed by the
// preserved extra keys in sorted order.
func (b Bank) MarshalJSON() ([]byte, error) {
	if b.Questions == nil {
		b.Questions = []Question{}
	}
	known, err := marshalNoEscape(bankAlias(b))
	if err != nil {
		return nil, err
	}
	return appendExtra(known, b.Extra, bankKeys)
}

// Validate checks the bank for questions that break the question contract.
// Only the text requirement is enforced; legacy entries may predate options.
func (b *Bank) Validate() error {
	for i := range b.Questions {
		if b.Questions[i].Text == "" {
			return fmt.Errorf("questions[%d]: question text is required", i)
		}
	}
	for i := range b.ArchivedQuestions {
		if b.ArchivedQuestions[i].Text == "" {
			return fmt.Errorf("archivedQuestions[%d]: question text is required", i)
		}
	}
	return nil
}

// NextVersion returns the version after the current one. Banks written
// before versioning count as version 1.
func (b *Bank) NextVersion() int {
	if b.Version <= 0 {
		return 2
	}
	return b.Version + 1
}

// Clone returns a deep copy of the question slices so callers can modify
// the copy without touching the loaded snapshot.
func (b *Bank) Clone() *Bank {
	c := *b
	c.Questions = append([]Question(nil), b.Questions...)
	c.ArchivedQuestions = append([]Question(nil), b.ArchivedQuestions...)
	if b.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(b.Extra))
		for k, v := range b.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}
