// Package fingerprint turns one query.Branch into the canonical subquery
// text used as the catalog's primary key. Two branches that serialize to
// equal strings must produce equal result sets; related chains are excluded
// on purpose (see DESIGN.md open questions).
package fingerprint

import (
	"strconv"
	"strings"

	"tagsistant/rds/internal/query"
)

// Serialize builds the canonical subquery text for one OR-branch:
// primary AND-nodes in source order, then every negated node of every
// primary (iterated in primary order), each prefixed with "-/".
func Serialize(b *query.Branch) string {
	var sb strings.Builder

	for _, node := range b.Nodes {
		writeNode(&sb, node, false)
	}
	for _, node := range b.Nodes {
		for _, negated := range node.Negated {
			writeNode(&sb, negated, true)
		}
	}

	return sb.String()
}

func writeNode(sb *strings.Builder, n *query.AndNode, negated bool) {
	if negated {
		sb.WriteString("-/")
	}

	if !n.IsTriple() {
		if n.Tag != "" {
			sb.WriteString(n.Tag)
		} else {
			// Resolved to a tag_id with no tag text; keep a distinct
			// identity per id instead of collapsing to a bare segment.
			sb.WriteString("tag_id:")
			sb.WriteString(strconv.FormatInt(n.TagID, 10))
		}
		sb.WriteByte('/')
		return
	}

	sb.WriteString(n.Namespace)
	sb.WriteByte('/')
	sb.WriteString(n.Key)
	sb.WriteByte('/')
	sb.WriteString(n.Op.Code())
	sb.WriteByte('/')
	sb.WriteString(n.Value)
	sb.WriteByte('/')
}

// JoinIDs renders a fingerprint from a list of rds_ids: comma-joined
// decimal ids with no surrounding whitespace.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// SplitIDs parses a fingerprint back into its rds_ids. An empty fingerprint
// yields an empty (not nil) slice.
func SplitIDs(fingerprint string) ([]int64, error) {
	if fingerprint == "" {
		return []int64{}, nil
	}
	parts := strings.Split(fingerprint, ",")
	ids := make([]int64, len(parts))
	for i, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
