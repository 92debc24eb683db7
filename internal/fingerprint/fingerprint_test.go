package fingerprint

import (
	"testing"

	"tagsistant/rds/internal/query"
)

func tag(name string) *query.AndNode {
	return &query.AndNode{Tag: name}
}

func triple(ns, key string, op query.Operator, val string) *query.AndNode {
	return &query.AndNode{Namespace: ns, Key: key, Op: op, Value: val}
}

func TestSerialize_SingleTag(t *testing.T) {
	b := &query.Branch{Nodes: []*query.AndNode{tag("t1")}}
	if got := Serialize(b); got != "t1/" {
		t.Errorf("got %q, want %q", got, "t1/")
	}
}

func TestSerialize_Conjunction(t *testing.T) {
	b := &query.Branch{Nodes: []*query.AndNode{tag("t1"), tag("t2")}}
	if got := Serialize(b); got != "t1/t2/" {
		t.Errorf("got %q, want %q", got, "t1/t2/")
	}
}

func TestSerialize_Negation(t *testing.T) {
	t1 := tag("t1")
	t1.Negated = []*query.AndNode{tag("t2")}
	b := &query.Branch{Nodes: []*query.AndNode{t1}}
	if got := Serialize(b); got != "t1/-/t2/" {
		t.Errorf("got %q, want %q", got, "t1/-/t2/")
	}
}

func TestSerialize_Triple(t *testing.T) {
	b := &query.Branch{Nodes: []*query.AndNode{triple("ns1", "size", query.OpGreaterThan, "50")}}
	if got := Serialize(b); got != "ns1/size/gt/50/" {
		t.Errorf("got %q, want %q", got, "ns1/size/gt/50/")
	}
}

func TestSerialize_ResolvedTagIDOnly(t *testing.T) {
	a := &query.Branch{Nodes: []*query.AndNode{{TagID: 7}}}
	if got := Serialize(a); got != "tag_id:7/" {
		t.Errorf("got %q, want %q", got, "tag_id:7/")
	}

	b := &query.Branch{Nodes: []*query.AndNode{{TagID: 8}}}
	if Serialize(a) == Serialize(b) {
		t.Error("distinct tag_ids must not collapse to the same subquery text")
	}

	// A resolved node that still carries its tag text keeps the text form.
	c := &query.Branch{Nodes: []*query.AndNode{{Tag: "t1", TagID: 7}}}
	if got := Serialize(c); got != "t1/" {
		t.Errorf("got %q, want %q", got, "t1/")
	}
}

func TestSerialize_RelatedExcluded(t *testing.T) {
	t1 := tag("t1")
	t1.Related = []*query.AndNode{tag("t1-synonym")}
	b := &query.Branch{Nodes: []*query.AndNode{t1}}
	if got := Serialize(b); got != "t1/" {
		t.Errorf("related nodes must not affect the fingerprint, got %q", got)
	}
}

func TestSerialize_OrderSensitive(t *testing.T) {
	a := &query.Branch{Nodes: []*query.AndNode{tag("t1"), tag("t2")}}
	b := &query.Branch{Nodes: []*query.AndNode{tag("t2"), tag("t1")}}
	if Serialize(a) == Serialize(b) {
		t.Error("reordered AND-chains must not collide; canonicalisation is order-sensitive")
	}
}

func TestSerialize_NegatedAfterAllPrimaries(t *testing.T) {
	t1 := tag("t1")
	t1.Negated = []*query.AndNode{tag("x")}
	t2 := tag("t2")
	b := &query.Branch{Nodes: []*query.AndNode{t1, t2}}
	want := "t1/t2/-/x/"
	if got := Serialize(b); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSerialize_Empty(t *testing.T) {
	b := &query.Branch{}
	if got := Serialize(b); got != "" {
		t.Errorf("empty branch should serialize to empty string, got %q", got)
	}
}

func TestJoinSplitIDs_RoundTrip(t *testing.T) {
	ids := []int64{1, 2, 314}
	fp := JoinIDs(ids)
	if fp != "1,2,314" {
		t.Errorf("got %q, want %q", fp, "1,2,314")
	}
	back, err := SplitIDs(fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(back) != len(ids) {
		t.Fatalf("got %d ids, want %d", len(back), len(ids))
	}
	for i := range ids {
		if back[i] != ids[i] {
			t.Errorf("index %d: got %d, want %d", i, back[i], ids[i])
		}
	}
}

func TestSplitIDs_Empty(t *testing.T) {
	ids, err := SplitIDs("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}
