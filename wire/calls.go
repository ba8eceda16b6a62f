package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	pathSep = "."
	idSep   = ":"
	callSep = ","
)

// ValidateSegment checks that a path segment is usable on the wire.
// Segments must be non-empty and free of the encoding separators.
func ValidateSegment(s string) error {
	if s == "" {
		return fmt.Errorf("empty path segment")
	}
	if strings.ContainsAny(s, pathSep+idSep+callSep) {
		return fmt.Errorf("path segment %q contains a reserved character", s)
	}
	return nil
}

// ValidatePath checks every segment of a path.
func ValidatePath(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	for _, seg := range path {
		if err := ValidateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

// JoinPath renders a path in dotted form.
func JoinPath(path []string) string {
	return strings.Join(path, pathSep)
}

// SplitPath is the inverse of JoinPath.
func SplitPath(s string) []string {
	return strings.Split(s, pathSep)
}

// EncodedCallSize returns the number of bytes one call contributes to
// the encoded calls parameter, excluding the separator to its
// neighbor.
func EncodedCallSize(id ID, path []string) int {
	n := len(id) + len(idSep)
	for i, seg := range path {
		if i > 0 {
			n += len(pathSep)
		}
		n += len(seg)
	}
	return n
}

// EncodedSeparatorSize is the cost of appending one more call to a
// non-empty calls parameter.
const EncodedSeparatorSize = len(callSep)

// EncodeCalls renders (id, path) pairs in compact form:
// "1:a.b.method,2:c.method".
func EncodeCalls(calls []Call) string {
	var b strings.Builder
	for i, c := range calls {
		if i > 0 {
			b.WriteString(callSep)
		}
		b.WriteString(string(c.ID))
		b.WriteString(idSep)
		b.WriteString(JoinPath(c.Path))
	}
	return b.String()
}

// DecodeCalls parses the compact calls parameter. Duplicate ids and
// malformed pairs are rejected.
func DecodeCalls(s string) ([]Call, error) {
	if s == "" {
		return nil, fmt.Errorf("empty calls parameter")
	}

	parts := strings.Split(s, callSep)
	calls := make([]Call, 0, len(parts))
	seen := make(map[ID]bool, len(parts))

	for _, part := range parts {
		id, dotted, ok := strings.Cut(part, idSep)
		if !ok || id == "" || dotted == "" {
			return nil, fmt.Errorf("malformed call entry %q", part)
		}

		path := SplitPath(dotted)
		if err := ValidatePath(path); err != nil {
			return nil, fmt.Errorf("call %s: %w", id, err)
		}

		if seen[ID(id)] {
			return nil, fmt.Errorf("duplicate call id %s", id)
		}
		seen[ID(id)] = true

		calls = append(calls, Call{ID: ID(id), Path: path})
	}

	return calls, nil
}

// MarshalBody renders the ordered request body array.
func MarshalBody(items []BodyItem) ([]byte, error) {
	return json.Marshal(items)
}

// ParseBody parses the request body array.
func ParseBody(data []byte) ([]BodyItem, error) {
	var items []BodyItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse batch body: %w", err)
	}
	return items, nil
}
