package main

import (
	"fmt"
	"strings"

	"tagsistant/rds/internal/query"
)

// parseQuery turns a list of subquery-syntax strings ("(segment/)+", segment
// one of <tag>, <ns>/<key>/<op>/<value>, or a "-/..." prefix for negation)
// into a query.Query with one branch per string. This is a CLI
// convenience over the syntax the cache already defines for its
// catalog keys, not a substitute for the filesystem's querytree parser:
// it never expands related chains, since nothing at this layer has a
// reasoner to ask.
func parseQuery(branches []string) (*query.Query, error) {
	q := &query.Query{}
	for _, b := range branches {
		branch, err := parseBranch(b)
		if err != nil {
			return nil, err
		}
		q.Branches = append(q.Branches, branch)
	}
	return q, nil
}

func parseBranch(text string) (*query.Branch, error) {
	trimmed := strings.Trim(text, "/")
	if trimmed == "" {
		return &query.Branch{}, nil
	}

	tokens := strings.Split(trimmed, "/")
	var primaries, negated []*query.AndNode
	inNegated := false

	for i := 0; i < len(tokens); {
		if tokens[i] == "-" {
			inNegated = true
			i++
			continue
		}
		node, consumed, err := parseNode(tokens[i:])
		if err != nil {
			return nil, fmt.Errorf("parsing branch %q: %w", text, err)
		}
		if inNegated {
			negated = append(negated, node)
		} else {
			primaries = append(primaries, node)
		}
		i += consumed
	}

	if len(primaries) == 0 {
		if len(negated) > 0 {
			return nil, fmt.Errorf("branch %q has negated segments with no primary to attach them to", text)
		}
		return &query.Branch{}, nil
	}

	primaries[0].Negated = append(primaries[0].Negated, negated...)
	return &query.Branch{Nodes: primaries}, nil
}

// parseNode consumes either a 4-token triple (ns/key/op/value, op a known
// code) or a single-token plain tag from the front of tokens, returning
// the node and how many tokens it consumed.
func parseNode(tokens []string) (*query.AndNode, int, error) {
	if len(tokens) == 0 {
		return nil, 0, fmt.Errorf("empty segment")
	}
	if len(tokens) >= 4 {
		if op, ok := opFromCode(tokens[2]); ok {
			return &query.AndNode{Namespace: tokens[0], Key: tokens[1], Op: op, Value: tokens[3]}, 4, nil
		}
	}
	return &query.AndNode{Tag: tokens[0]}, 1, nil
}

func opFromCode(code string) (query.Operator, bool) {
	switch code {
	case "eq":
		return query.OpEqual, true
	case "inc":
		return query.OpContains, true
	case "gt":
		return query.OpGreaterThan, true
	case "lt":
		return query.OpLessThan, true
	default:
		return query.OpNone, false
	}
}
