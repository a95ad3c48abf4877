package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Model output is supposed to be bare JSON but regularly arrives wrapped in
// markdown fences, with trailing commas or with a sentence of preamble.
var (
	codeFenceStartRegex = regexp.MustCompile(`(?s)^` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}\s*$`)
	codeFenceAnyRegex   = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	trailingCommaRegex    = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRegex      = regexp.MustCompile(`([{,]\s*)([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)
	multiLineCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentStartRegex = regexp.MustCompile(`(?m)^\s*//.*$`)

	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	arrayRegex  = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
)

// maxResponseSize bounds the text handed to the parser.
const maxResponseSize = 1 << 20

// ParseJSON decodes model output into T, trying in order: the raw text,
// the text without code fences, a cleaned-up version (trailing commas,
// unquoted keys, comments) and finally the first JSON value found in the text.
func ParseJSON[T any](text string) (T, error) {
	var zero T
	if len(text) > maxResponseSize {
		return zero, fmt.Errorf("response exceeds size limit (%d > %d bytes)", len(text), maxResponseSize)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("empty response")
	}

	result, firstErr := tryDirectParse[T](trimmed)
	if firstErr == nil {
		return result, nil
	}
	log.Debug().Err(firstErr).Str("preview", truncate(trimmed, 100)).Msg("direct JSON parse failed, trying cleanup")

	withoutFences := removeCodeFences(trimmed)
	if withoutFences != trimmed {
		if result, err := tryDirectParse[T](withoutFences); err == nil {
			return result, nil
		}
	}

	cleaned := cleanupJSON(withoutFences)
	if result, err := tryDirectParse[T](cleaned); err == nil {
		return result, nil
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if result, err := tryDirectParse[T](extracted); err == nil {
			return result, nil
		}
	}

	return zero, fmt.Errorf("all JSON parsing strategies failed: %w", firstErr)
}

func tryDirectParse[T any](text string) (T, error) {
	var result T
	err := json.Unmarshal([]byte(text), &result)
	return result, err
}

func removeCodeFences(text string) string {
	cleaned := codeFenceStartRegex.ReplaceAllString(text, "$1")
	if cleaned == text {
		cleaned = codeFenceAnyRegex.ReplaceAllString(text, "$1")
	}
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

// cleanupJSON fixes the usual formatting slips. Single quotes are left
// alone: French question texts are full of apostrophes. Only whole-line //
// comments are removed so URLs inside strings survive.
func cleanupJSON(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = outsideStrings(cleaned, func(code string) string {
		code = trailingCommaRegex.ReplaceAllString(code, "$1")
		return unquotedKeyRegex.ReplaceAllString(code, `$1"$2":`)
	})
	cleaned = lineCommentStartRegex.ReplaceAllString(cleaned, "")
	cleaned = multiLineCommentRegex.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// outsideStrings applies fix to the parts of text that are not inside a
// double-quoted string literal. String contents are copied unchanged.
func outsideStrings(text string, fix func(string) string) string {
	var out strings.Builder
	out.Grow(len(text))

	start := 0
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inString && escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case inString && c == '"':
			inString = false
			out.WriteString(text[start : i+1])
			start = i + 1
		case !inString && c == '"':
			inString = true
			out.WriteString(fix(text[start:i]))
			start = i
		}
	}
	if inString {
		out.WriteString(text[start:])
	} else {
		out.WriteString(fix(text[start:]))
	}
	return out.String()
}

// extractJSON returns the outermost object or array in text, preferring the
// kind the text starts with.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		if match := arrayRegex.FindString(text); match != "" {
			return match
		}
	}
	if match := objectRegex.FindString(text); match != "" {
		return match
	}
	return arrayRegex.FindString(text)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
