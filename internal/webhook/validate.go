package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validator checks grab payloads against the expected schema.
type Validator struct {
	clientName string
}

// NewValidator creates a validator that only accepts grabs sent to the
// named download client. An empty name selects DefaultClientName.
func NewValidator(clientName string) *Validator {
	if clientName == "" {
		clientName = DefaultClientName
	}
	return &Validator{clientName: clientName}
}

// ClientName returns the download client name grabs must carry.
func (v *Validator) ClientName() string {
	return v.clientName
}

// Validate checks a grab payload from source. All problems are reported,
// not just the first.
func (v *Validator) Validate(source Source, p Payload) (Grab, []Issue) {
	var c checker
	g := Grab{Source: source}

	if et, ok := c.str(p, "eventType"); ok && et != EventGrab {
		c.add(CodeInvalidLiteral, fmt.Sprintf("Invalid literal value, expected %q", EventGrab), "eventType")
	}

	key := source.subjectKey()
	if media, ok := c.object(p, key); ok {
		g.MediaID, _ = c.integer(media, key, "id")
		g.Title, _ = c.str(media, key, "title")
		g.ImdbID, _ = c.str(media, key, "imdbId")
		g.TmdbID, _ = c.integer(media, key, "tmdbId")
	}

	if rel, ok := c.object(p, "release"); ok {
		g.ReleaseTitle, _ = c.str(rel, "release", "releaseTitle")
	}

	if id, ok := c.str(p, "downloadId"); ok {
		if strings.TrimSpace(id) == "" {
			c.add(CodeTooSmall, "String must contain at least 1 character(s)", "downloadId")
		}
		g.DownloadID = id
	}

	if dc, ok := c.str(p, "downloadClient"); ok {
		if dc != v.clientName {
			c.add(CodeInvalidLiteral, fmt.Sprintf("Invalid literal value, expected %q", v.clientName), "downloadClient")
		}
		g.DownloadClient = dc
	}

	return g, c.issues
}

// checker accumulates issues while reading typed fields.
type checker struct {
	issues []Issue
}

func (c *checker) add(code, msg string, path ...string) {
	c.issues = append(c.issues, Issue{Code: code, Path: path, Message: msg})
}

// lookup reads the last path element from obj; path is the full path for issues.
func (c *checker) lookup(obj map[string]any, path []string) (any, bool) {
	v, present := obj[path[len(path)-1]]
	if !present {
		c.add(CodeInvalidType, "Required", path...)
		return nil, false
	}
	return v, true
}

func (c *checker) str(obj map[string]any, path ...string) (string, bool) {
	v, ok := c.lookup(obj, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		c.add(CodeInvalidType, "Expected string, received "+kindOf(v), path...)
		return "", false
	}
	return s, true
}

func (c *checker) integer(obj map[string]any, path ...string) (int64, bool) {
	v, ok := c.lookup(obj, path)
	if !ok {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		c.add(CodeInvalidType, "Expected number, received "+kindOf(v), path...)
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		c.add(CodeInvalidType, "Expected integer, received float", path...)
		return 0, false
	}
	return i, true
}

func (c *checker) object(obj map[string]any, path ...string) (map[string]any, bool) {
	v, ok := c.lookup(obj, path)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		c.add(CodeInvalidType, "Expected object, received "+kindOf(v), path...)
		return nil, false
	}
	return m, true
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
