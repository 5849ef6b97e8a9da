package photodedup

import "testing"

func TestGroupExactDuplicates(t *testing.T) {
	t.Parallel()

	t0 := mustTime(t, "2024-01-01T00:00:00Z")
	items := []PhotoItem{
		{ID: "a", CreateTime: t0},
		{ID: "b", CreateTime: t0.Add(1)},
		{ID: "c", CreateTime: t0},
	}
	byteHashes := map[string]string{
		"a": "digest1",
		"b": "digest1",
		"c": "digest2", // lone digest, not a duplicate
	}

	groups := GroupExactDuplicates(items, byteHashes)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if g.Category != CategoryExact {
		t.Errorf("Category = %v, want CategoryExact", g.Category)
	}
	if len(g.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(g.Items))
	}
	if g.MoreCount != 0 {
		t.Errorf("MoreCount = %d, want 0", g.MoreCount)
	}
	if g.Explanation != "Byte-identical content (SHA-256 match)." {
		t.Errorf("Explanation = %q", g.Explanation)
	}
}

func TestExactDuplicateIDs(t *testing.T) {
	t.Parallel()

	byteHashes := map[string]string{
		"a": "d1",
		"b": "d1",
		"c": "d2",
	}
	ids := ExactDuplicateIDs(byteHashes)
	if !ids["a"] || !ids["b"] {
		t.Error("expected a and b to be exact duplicates")
	}
	if ids["c"] {
		t.Error("c has a unique digest, should not be marked duplicate")
	}
}

func TestGroupExactDuplicates_RepresentativePair(t *testing.T) {
	t.Parallel()

	t0 := mustTime(t, "2024-01-01T00:00:00Z")
	items := []PhotoItem{
		{ID: "gamma", CreateTime: t0.Add(5)},
		{ID: "alpha", CreateTime: t0.Add(2)},
		{ID: "beta", CreateTime: t0},
	}
	byteHashes := map[string]string{"gamma": "d", "alpha": "d", "beta": "d"}

	groups := GroupExactDuplicates(items, byteHashes)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	rp := groups[0].RepresentativePair
	if rp.Earliest.ID != "beta" {
		t.Errorf("Earliest.ID = %q, want beta", rp.Earliest.ID)
	}
	if rp.Latest.ID != "gamma" {
		t.Errorf("Latest.ID = %q, want gamma", rp.Latest.ID)
	}
	if groups[0].MoreCount != 1 {
		t.Errorf("MoreCount = %d, want 1", groups[0].MoreCount)
	}
}
