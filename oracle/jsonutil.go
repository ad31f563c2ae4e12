package oracle

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	// ```json { ... } ```, каждый блок отдельно
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	// первый '{' до последнего '}'
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// запятая перед ] или }
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ErrNoJSON is wrapped by ParseError when the response has no JSON object at all.
var ErrNoJSON = errors.New("no JSON object or code block found")

// candidates lists the pieces of a response that may hold the object, in the order
// they are tried: every fenced block, then the span from the first '{' to the last '}'.
func candidates(content string) []string {
	var res []string
	for _, m := range jsonBlockPattern.FindAllStringSubmatch(content, -1) {
		res = append(res, cleanJSON(m[1]))
	}
	if obj := jsonObjectPattern.FindString(content); obj != "" {
		res = append(res, cleanJSON(obj))
	}
	return res
}

// ExtractJSON finds a JSON object in a model response. The whole response is used when
// it is valid JSON already; otherwise the first fenced block or bare object that is
// valid after removing line comments and trailing commas. When nothing is valid the
// first cleaned piece is returned, and "" when there is none.
func ExtractJSON(content string) string {
	if raw := strings.TrimSpace(content); json.Valid([]byte(raw)) {
		return raw
	}
	found := candidates(content)
	for _, c := range found {
		if json.Valid([]byte(c)) {
			return c
		}
	}
	if len(found) != 0 {
		return found[0]
	}
	return ""
}

// Decode extracts the JSON object from response and unmarshals it into v.
// Any failure is a *ParseError carrying the original response.
func Decode(response string, v any) error {
	raw := ExtractJSON(response)
	if raw == "" {
		return &ParseError{Response: response, Err: ErrNoJSON}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ParseError{Response: response, Err: err}
	}
	return nil
}

func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment cuts a // comment that starts outside of a string literal.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
