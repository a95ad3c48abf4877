package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"direct", `{"name": "capitale", "count": 2}`},
		{"json fence", "```json\n{\"name\": \"capitale\", \"count\": 2}\n```"},
		{"bare fence", "```\n{\"name\": \"capitale\", \"count\": 2}\n```"},
		{"fence inside prose", "Voici le JSON :\n```json\n{\"name\": \"capitale\", \"count\": 2}\n```\nBonne journée"},
		{"trailing comma", `{"name": "capitale", "count": 2,}`},
		{"unquoted keys", `{name: "capitale", count: 2}`},
		{"line comment", "{\n  // résultat\n  \"name\": \"capitale\",\n  \"count\": 2\n}"},
		{"block comment", `{"name": "capitale", /* note */ "count": 2}`},
		{"preamble", `Voici les questions demandées : {"name": "capitale", "count": 2} Merci.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON[sample](tt.input)
			require.NoError(t, err)
			assert.Equal(t, sample{Name: "capitale", Count: 2}, got)
		})
	}
}

func TestParseJSONKeepsApostrophesAndURLs(t *testing.T) {
	got, err := ParseJSON[sample](`{"name": "l'https://exemple.fr", "count": 1,}`)
	require.NoError(t, err)
	assert.Equal(t, "l'https://exemple.fr", got.Name)
}

func TestParseJSONErrors(t *testing.T) {
	_, err := ParseJSON[sample]("   ")
	assert.ErrorContains(t, err, "empty response")

	_, err = ParseJSON[sample]("je ne peux pas répondre")
	assert.ErrorContains(t, err, "all JSON parsing strategies failed")
}

func TestExtractJSONPrefersLeadingKind(t *testing.T) {
	assert.Equal(t, `[{"a": 1}, {"a": 2}]`, extractJSON(`[{"a": 1}, {"a": 2}]`))
	assert.Equal(t, `{"a": [1, 2]}`, extractJSON(`résultat {"a": [1, 2]} fin`))
	assert.Equal(t, "", extractJSON("rien"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

func TestParseJSONCleanupLeavesStringValuesAlone(t *testing.T) {
	type question struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	// The trailing comma forces the cleanup pass.
	input := `{"question": "Capitale, pays: France ?", "options": ["Paris, capitale: oui", "Lyon,]", "a", "b"],}`

	got, err := ParseJSON[question](input)
	require.NoError(t, err)
	assert.Equal(t, "Capitale, pays: France ?", got.Question)
	assert.Equal(t, []string{"Paris, capitale: oui", "Lyon,]", "a", "b"}, got.Options)
}

func TestOutsideStrings(t *testing.T) {
	upper := func(s string) string { return strings.ToUpper(s) }

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no strings", `{a: 1}`, `{A: 1}`},
		{"string kept", `{a: "b: c"}`, `{A: "b: c"}`},
		{"escaped quote", `{a: "say \"hi\" x", b: 2}`, `{A: "say \"hi\" x", B: 2}`},
		{"escaped backslash", `{a: "c:\\", b: 2}`, `{A: "c:\\", B: 2}`},
		{"unterminated", `{a: "open`, `{A: "open`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, outsideStrings(tt.input, upper))
		})
	}
}
