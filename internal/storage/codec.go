package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/quizquotidien/quizgen/internal/types"
)

// Encode serializes a bank the way questions.json is published: two-space
// indentation, no HTML escaping, trailing newline.
func Encode(bank *types.Bank) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bank); err != nil {
		return nil, fmt.Errorf("encoding question bank: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses and validates a bank document.
func Decode(data []byte) (*types.Bank, error) {
	var bank types.Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}
	if err := bank.Validate(); err != nil {
		return nil, fmt.Errorf("invalid question bank: %w", err)
	}
	return &bank, nil
}
