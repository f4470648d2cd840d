// Package path parses dotted/bracketed path expressions and applies them to
// semi-structured document trees built from maps, slices, and scalars.
//
// A path expression is a sequence of segments separated by dots, where each
// segment may carry one or more trailing bracketed numeric subscripts, for
// example "characters[0].level" or "world.location". A leading "game" segment
// is accepted and stripped for backward compatibility.
package path

import (
	"strconv"
	"strings"

	"github.com/louisbranch/taleweave/internal/platform/errors"
)

// Parse tokenizes a path expression into an ordered list of key and index
// tokens. "characters[0].level" parses to ["characters", "0", "level"].
//
// Parsing is strict: empty expressions, empty segments, unbalanced brackets,
// and non-numeric or negative subscripts are rejected rather than coerced.
func Parse(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New(errors.CodePathEmpty, "path expression is required")
	}

	var tokens []string
	for _, segment := range strings.Split(expr, ".") {
		segmentTokens, err := parseSegment(segment, expr)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, segmentTokens...)
	}

	// A leading "game" segment is legacy addressing for the document root.
	if len(tokens) > 1 && tokens[0] == "game" {
		tokens = tokens[1:]
	}
	return tokens, nil
}

// Canonical returns the canonical form of a path expression: trimmed, with
// the legacy "game" root prefix removed. It does not validate the expression.
func Canonical(expr string) string {
	expr = strings.TrimSpace(expr)
	if rest, ok := strings.CutPrefix(expr, "game."); ok && rest != "" {
		return rest
	}
	return expr
}

// parseSegment splits one dotted segment into its name token and any trailing
// bracketed index tokens.
func parseSegment(segment, expr string) ([]string, error) {
	if segment == "" {
		return nil, errors.WithMetadata(errors.CodePathMalformed,
			"path has an empty segment", map[string]string{"path": expr})
	}

	open := strings.IndexByte(segment, '[')
	if open == -1 {
		if strings.ContainsAny(segment, "]") {
			return nil, errors.WithMetadata(errors.CodePathMalformed,
				"path has an unmatched bracket", map[string]string{"path": expr})
		}
		return []string{segment}, nil
	}

	name := segment[:open]
	if name == "" {
		return nil, errors.WithMetadata(errors.CodePathMalformed,
			"path subscript is missing a field name", map[string]string{"path": expr})
	}
	tokens := []string{name}

	rest := segment[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, errors.WithMetadata(errors.CodePathMalformed,
				"path has trailing characters after a subscript", map[string]string{"path": expr})
		}
		close := strings.IndexByte(rest, ']')
		if close == -1 {
			return nil, errors.WithMetadata(errors.CodePathMalformed,
				"path has an unmatched bracket", map[string]string{"path": expr})
		}
		index := rest[1:close]
		if !isIndex(index) {
			return nil, errors.WithMetadata(errors.CodePathBadIndex,
				"path subscript must be a non-negative integer", map[string]string{"path": expr, "index": index})
		}
		tokens = append(tokens, index)
		rest = rest[close+1:]
	}
	return tokens, nil
}

// Write assigns value at the location addressed by tokens, creating missing
// intermediate containers as it descends. A missing child is created as a
// sequence when the next token is numeric and as a map otherwise; that
// lookahead decides container kind exactly once, at creation. Numeric tokens
// against an existing map are plain string keys. Writing past the end of an
// existing sequence extends it with nils. The final token assigns value
// unconditionally, regardless of what was there before.
func Write(root map[string]any, tokens []string, value any) error {
	if root == nil {
		return errors.New(errors.CodePathEmpty, "document root is required")
	}
	if len(tokens) == 0 {
		return errors.New(errors.CodePathEmpty, "path expression is required")
	}
	_, err := assign(root, tokens, value)
	return err
}

// assign descends one token and returns the (possibly reallocated) container.
func assign(node any, tokens []string, value any) (any, error) {
	token := tokens[0]

	switch container := node.(type) {
	case map[string]any:
		if len(tokens) == 1 {
			container[token] = value
			return container, nil
		}
		child, ok := container[token]
		if !ok || !isContainer(child) {
			child = newContainer(tokens[1])
		}
		child, err := assign(child, tokens[1:], value)
		if err != nil {
			return nil, err
		}
		container[token] = child
		return container, nil

	case []any:
		index, err := strconv.Atoi(token)
		if err != nil || index < 0 {
			return nil, errors.WithMetadata(errors.CodePathNotIndexable,
				"sequence element must be addressed by a non-negative index",
				map[string]string{"token": token})
		}
		for len(container) <= index {
			container = append(container, nil)
		}
		if len(tokens) == 1 {
			container[index] = value
			return container, nil
		}
		child := container[index]
		if !isContainer(child) {
			child = newContainer(tokens[1])
		}
		child, err = assign(child, tokens[1:], value)
		if err != nil {
			return nil, err
		}
		container[index] = child
		return container, nil

	default:
		// Callers only recurse into containers.
		return nil, errors.WithMetadata(errors.CodePathNotIndexable,
			"cannot descend into a scalar value", map[string]string{"token": token})
	}
}

// Read returns the value addressed by tokens and whether it exists. It never
// modifies the tree.
func Read(root map[string]any, tokens []string) (any, bool) {
	var node any = root
	for _, token := range tokens {
		switch container := node.(type) {
		case map[string]any:
			child, ok := container[token]
			if !ok {
				return nil, false
			}
			node = child
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(container) {
				return nil, false
			}
			node = container[index]
		default:
			return nil, false
		}
	}
	return node, true
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// newContainer picks the container kind for a missing child based on the
// token that will address into it.
func newContainer(next string) any {
	if isIndex(next) {
		return []any{}
	}
	return map[string]any{}
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
