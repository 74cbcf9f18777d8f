// Package template renders mustache-style templates against the run state.
// Variables ({{name}}) expand string fields, sections ({{#name}}...{{/name}})
// enter nested values or iterate lists, and a fixed lambda library transforms
// the rendered section content. Dotted paths navigate nested values.
//
// Section tags must not carry whitespace between the delimiter and the name;
// a tag like "{{# name}}" is not a section. Variable tags tolerate
// surrounding whitespace.
package template

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	openDelimiter  = "{{"
	closeDelimiter = "}}"
)

// Render renders the template against the given scope. The scope may be a
// map or any value serializable to one; missing names render empty.
func Render(template string, scope any) (string, error) {
	nodes, err := parse(template)
	if err != nil {
		return "", err
	}

	context, err := contextOf(scope)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if err := renderNodes(&out, nodes, []any{context}); err != nil {
		return "", err
	}

	return out.String(), nil
}

// IsTemplate reports whether the given text contains template tags.
func IsTemplate(text string) bool {
	open := strings.Index(text, openDelimiter)

	return open >= 0 && strings.Index(text[open:], closeDelimiter) > 0
}

// ToBoolean coerces rendered text to a boolean: empty or blank text is
// false, otherwise the natural parse; anything unparseable is false.
func ToBoolean(text string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(text))

	return err == nil && value
}

// ToInteger coerces rendered text to an integer: empty, blank or
// non-numeric text is 0.
func ToInteger(text string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0
	}

	return value
}

type nodeKind int

const (
	nodeText nodeKind = iota
	nodeVariable
	nodeSection
	nodeInverted
)

type node struct {
	kind     nodeKind
	text     string // literal text or tag name
	children []node
}

func parse(template string) ([]node, error) {
	nodes, rest, err := parseNodes(template, "")
	if err != nil {
		return nil, err
	}

	if rest != "" {
		return nil, fmt.Errorf("unbalanced section close near %q", rest)
	}

	return nodes, nil
}

// parseNodes consumes template text until the close tag of the named section
// (or the end of input at the top level) and returns the remaining text.
func parseNodes(template, section string) ([]node, string, error) {
	var nodes []node

	for {
		open := strings.Index(template, openDelimiter)
		if open < 0 {
			if section != "" {
				return nil, "", fmt.Errorf("section %q is not closed", section)
			}

			if template != "" {
				nodes = append(nodes, node{kind: nodeText, text: template})
			}

			return nodes, "", nil
		}

		if open > 0 {
			nodes = append(nodes, node{kind: nodeText, text: template[:open]})
		}

		template = template[open+len(openDelimiter):]

		end := strings.Index(template, closeDelimiter)
		if end < 0 {
			return nil, "", fmt.Errorf("unterminated tag near %q", template)
		}

		tag := template[:end]
		template = template[end+len(closeDelimiter):]

		switch {
		case strings.HasPrefix(tag, "#") && !startsBlank(tag[1:]):
			name := strings.TrimRight(tag[1:], " \t")

			children, rest, err := parseNodes(template, name)
			if err != nil {
				return nil, "", err
			}

			nodes = append(nodes, node{kind: nodeSection, text: name, children: children})
			template = rest
		case strings.HasPrefix(tag, "^") && !startsBlank(tag[1:]):
			name := strings.TrimRight(tag[1:], " \t")

			children, rest, err := parseNodes(template, name)
			if err != nil {
				return nil, "", err
			}

			nodes = append(nodes, node{kind: nodeInverted, text: name, children: children})
			template = rest
		case strings.HasPrefix(tag, "/"):
			name := strings.TrimSpace(tag[1:])
			if name != section {
				return nil, "", fmt.Errorf("unexpected close of section %q inside %q", name, section)
			}

			return nodes, template, nil
		case strings.HasPrefix(tag, "!"):
			// comment
		default:
			nodes = append(nodes, node{kind: nodeVariable, text: strings.TrimSpace(tag)})
		}
	}
}

func startsBlank(s string) bool {
	return s == "" || s[0] == ' ' || s[0] == '\t'
}

func renderNodes(out *strings.Builder, nodes []node, stack []any) error {
	for _, n := range nodes {
		switch n.kind {
		case nodeText:
			out.WriteString(n.text)
		case nodeVariable:
			out.WriteString(formatValue(lookup(stack, n.text)))
		case nodeSection:
			if err := renderSection(out, n, stack); err != nil {
				return err
			}
		case nodeInverted:
			value := lookup(stack, n.text)
			if !truthy(value) {
				if err := renderNodes(out, n.children, stack); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func renderSection(out *strings.Builder, n node, stack []any) error {
	if lambda, ok := lambdas[n.text]; ok {
		var inner strings.Builder
		if err := renderNodes(&inner, n.children, stack); err != nil {
			return err
		}

		transformed, err := lambda(inner.String())
		if err != nil {
			return err
		}

		out.WriteString(transformed)

		return nil
	}

	value := lookup(stack, n.text)
	if !truthy(value) {
		return nil
	}

	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if err := renderNodes(out, n.children, append(stack, item)); err != nil {
				return err
			}
		}

		return nil
	case map[string]any:
		return renderNodes(out, n.children, append(stack, v))
	default:
		return renderNodes(out, n.children, stack)
	}
}

// lookup resolves a dotted path against the context stack, innermost first.
func lookup(stack []any, path string) any {
	segments := strings.Split(path, ".")

	for i := len(stack) - 1; i >= 0; i-- {
		frame, ok := stack[i].(map[string]any)
		if !ok {
			continue
		}

		value, ok := frame[segments[0]]
		if !ok {
			continue
		}

		for _, segment := range segments[1:] {
			nested, ok := value.(map[string]any)
			if !ok {
				return nil
			}

			value, ok = nested[segment]
			if !ok {
				return nil
			}
		}

		return value
	}

	return nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int, int64, uint64, float64:
		return formatValue(v) != "0"
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}

		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// contextOf normalizes an arbitrary scope value into nested maps. Structs
// pass through their serialization tags so template paths match the state
// file field names.
func contextOf(scope any) (map[string]any, error) {
	if scope == nil {
		return map[string]any{}, nil
	}

	if context, ok := scope.(map[string]any); ok {
		return context, nil
	}

	data, err := yaml.Marshal(scope)
	if err != nil {
		return nil, fmt.Errorf("failed to build template context: %w", err)
	}

	var context map[string]any
	if err := yaml.Unmarshal(data, &context); err != nil {
		return nil, fmt.Errorf("failed to build template context: %w", err)
	}

	return context, nil
}
