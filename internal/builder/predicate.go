package builder

import (
	"strings"

	"tagsistant/rds/internal/query"
)

// nodePredicate returns the parameterised WHERE fragment for a single
// AndNode and the args it binds: tag_id match if resolved, else plain
// tagname match, else a namespaced triple.
func nodePredicate(n *query.AndNode) (string, []any) {
	if n.TagID != 0 {
		return "tagging.tag_id = ?", []any{n.TagID}
	}
	if !n.IsTriple() {
		return "tagname = ?", []any{n.Tag}
	}

	switch n.Op {
	case query.OpContains:
		return "tagname = ? AND `key` = ? AND value LIKE ?", []any{n.Namespace, n.Key, "%" + n.Value + "%"}
	case query.OpGreaterThan:
		// The value column has TEXT affinity; cast both sides so gt/lt
		// compare numerically rather than lexicographically.
		return "tagname = ? AND `key` = ? AND CAST(value AS REAL) > CAST(? AS REAL)", []any{n.Namespace, n.Key, n.Value}
	case query.OpLessThan:
		return "tagname = ? AND `key` = ? AND CAST(value AS REAL) < CAST(? AS REAL)", []any{n.Namespace, n.Key, n.Value}
	default: // OpEqual and unset both default to equality
		return "tagname = ? AND `key` = ? AND value = ?", []any{n.Namespace, n.Key, n.Value}
	}
}

// disjunctivePredicate ORs node's predicate with every node in its related
// chain, the "primary OR related0 OR related1 ..." clause the builder uses
// to seed (phase 2) and restrict (phase 3) the result set.
func disjunctivePredicate(n *query.AndNode) (string, []any) {
	clause, args := nodePredicate(n)
	clauses := []string{clause}

	for _, related := range n.Related {
		c, a := nodePredicate(related)
		clauses = append(clauses, c)
		args = append(args, a...)
	}

	if len(clauses) == 1 {
		return clauses[0], args
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}
