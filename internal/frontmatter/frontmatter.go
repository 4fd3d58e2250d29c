// Package frontmatter locates and patches the YAML front matter block of
// Markdown documents (the region between leading --- delimiters).
package frontmatter

import (
	"bytes"
	"strings"
)

// Field is a single key/value update to apply to a front matter block.
// Updates are ordered: for the same key, the last write wins.
type Field struct {
	Key   string
	Value string
}

// Merger patches fields into a document's front matter block.
//
// Implementations must be idempotent for a fixed value: applying the
// same (key, value) twice yields the same output as applying it once.
// Content without a well-formed block is returned unchanged.
type Merger interface {
	MergeFields(content []byte, updates []Field) ([]byte, error)
}

// splitHeader locates the front matter block. On success it returns the
// byte offset where the header body starts (just past the opening "---"
// line) and the offset where the closing "---" line starts. The body
// includes its trailing newline. Returns ok=false when the delimiters
// are absent or malformed, in which case the document has no header.
func splitHeader(content []byte) (bodyStart, bodyEnd int, ok bool) {
	switch {
	case bytes.HasPrefix(content, []byte("---\n")):
		bodyStart = 4
	case bytes.HasPrefix(content, []byte("---\r\n")):
		bodyStart = 5
	default:
		return 0, 0, false
	}

	// The closing delimiter is a line consisting solely of "---".
	for idx := bodyStart - 1; ; {
		j := bytes.Index(content[idx:], []byte("\n---"))
		if j < 0 {
			return 0, 0, false
		}
		pos := idx + j // index of the newline ending the body
		rest := content[pos+4:]
		if len(rest) == 0 || rest[0] == '\n' || (len(rest) >= 2 && rest[0] == '\r' && rest[1] == '\n') {
			return bodyStart, pos + 1, true
		}
		idx = pos + 1
	}
}

// Header returns the raw header body (the lines between the delimiters,
// including the final newline) and whether a well-formed block exists.
func Header(content []byte) ([]byte, bool) {
	start, end, ok := splitHeader(content)
	if !ok {
		return nil, false
	}
	return content[start:end], true
}

// Get returns the value of the first line matching key in the header
// block, with surrounding whitespace trimmed.
func Get(content []byte, key string) (string, bool) {
	body, ok := Header(content)
	if !ok {
		return "", false
	}
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if rest, found := cutKey(line, key); found {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// Has reports whether the header block contains a line for key.
func Has(content []byte, key string) bool {
	_, ok := Get(content, key)
	return ok
}

// cutKey returns the remainder after "key:" when line starts a field
// for exactly that key.
func cutKey(line, key string) (string, bool) {
	if !strings.HasPrefix(line, key) {
		return "", false
	}
	rest := line[len(key):]
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return rest[1:], true
}

// TextMerger rewrites fields by plain-text search and replace inside the
// header block. Every byte outside the touched lines is preserved,
// including formatting quirks of unrelated fields.
type TextMerger struct{}

// MergeFields applies updates in order. An existing line for a key is
// rewritten in place. Only the first occurrence is touched, so headers
// with duplicate keys are rewritten deterministically at their first
// line. A missing key is appended at the end of the block.
func (TextMerger) MergeFields(content []byte, updates []Field) ([]byte, error) {
	start, end, ok := splitHeader(content)
	if !ok {
		return content, nil
	}

	body := string(content[start:end])
	var lines []string
	if body != "" {
		// The body ends with a newline; trim it so the join below does
		// not create an empty trailing line.
		lines = strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	}

	for _, u := range updates {
		replaced := false
		for i, line := range lines {
			stripped := strings.TrimSuffix(line, "\r")
			if _, found := cutKey(stripped, u.Key); !found {
				continue
			}
			crlf := ""
			if stripped != line {
				crlf = "\r"
			}
			lines[i] = u.Key + ": " + u.Value + crlf
			replaced = true
			break
		}
		if !replaced {
			lines = append(lines, u.Key+": "+u.Value)
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(content) + 64)
	buf.Write(content[:start])
	if len(lines) > 0 {
		buf.WriteString(strings.Join(lines, "\n"))
		buf.WriteByte('\n')
	}
	buf.Write(content[end:])
	return buf.Bytes(), nil
}
