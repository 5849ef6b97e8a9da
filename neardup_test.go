package photodedup

import "testing"

func defaultThresholds() Thresholds {
	return Thresholds{
		DHashVery:     DefaultDHashThresholdVery,
		DHashPossible: DefaultDHashThresholdPossible,
		PHashVery:     DefaultPHashThresholdVery,
		PHashPossible: DefaultPHashThresholdPossible,
	}
}

func TestGroupNearDuplicates_VerySimilarPair(t *testing.T) {
	t.Parallel()

	t0 := mustTime(t, "2024-01-01T00:00:00Z")
	a := PhotoItem{ID: "a", CreateTime: t0, Width: 4000, Height: 3000}
	b := PhotoItem{ID: "b", CreateTime: t0, Width: 4000, Height: 3000}

	hashes := map[string]PerceptualHashes{
		"a": {DHash: 0, PHash: 0},
		"b": {DHash: 0, PHash: 0},
	}

	result := GroupNearDuplicates([][]PhotoItem{{a, b}}, hashes, defaultThresholds())
	if result.Comparisons != 1 {
		t.Errorf("Comparisons = %d, want 1", result.Comparisons)
	}
	if len(result.VerySimilar) != 1 {
		t.Fatalf("got %d very-similar groups, want 1", len(result.VerySimilar))
	}
	if len(result.PossiblySimilar) != 0 {
		t.Errorf("got %d possibly-similar groups, want 0", len(result.PossiblySimilar))
	}
}

func TestGroupNearDuplicates_PrecedenceExcludesVeryFromPossible(t *testing.T) {
	t.Parallel()

	t0 := mustTime(t, "2024-01-01T00:00:00Z")
	a := PhotoItem{ID: "a", CreateTime: t0, Width: 4000, Height: 3000}
	b := PhotoItem{ID: "b", CreateTime: t0.Add(1), Width: 4000, Height: 3000}
	c := PhotoItem{ID: "c", CreateTime: t0.Add(2), Width: 4000, Height: 3000}

	// a-b: very similar (dhash and phash distance 0). a-c and b-c: possible
	// (dhash distance 8, within possible threshold 10 but above very
	// threshold 5; phash distance 64). The key property under test is that
	// a and b — already in a very component — do not also appear in a
	// possible component with c.
	hashes := map[string]PerceptualHashes{
		"a": {DHash: 0, PHash: 0},
		"b": {DHash: 0, PHash: 0},
		"c": {DHash: 0xFF, PHash: 0xFFFFFFFFFFFFFFFF}, // distance(a,c)=distance(b,c)=8 on dhash (possible)
	}

	result := GroupNearDuplicates([][]PhotoItem{{a, b, c}}, hashes, defaultThresholds())

	veryIDs := map[string]bool{}
	for _, g := range result.VerySimilar {
		for _, item := range g.Items {
			veryIDs[item.ID] = true
		}
	}
	for _, g := range result.PossiblySimilar {
		for _, item := range g.Items {
			if veryIDs[item.ID] {
				t.Errorf("item %s appears in both very-similar and possibly-similar groups", item.ID)
			}
		}
	}
}

func TestGroupNearDuplicates_NoEdgeBelowThresholds(t *testing.T) {
	t.Parallel()

	t0 := mustTime(t, "2024-01-01T00:00:00Z")
	a := PhotoItem{ID: "a", CreateTime: t0, Width: 4000, Height: 3000}
	b := PhotoItem{ID: "b", CreateTime: t0, Width: 4000, Height: 3000}

	hashes := map[string]PerceptualHashes{
		"a": {DHash: 0, PHash: 0},
		"b": {DHash: 0xFFFFFFFFFFFFFFFF, PHash: 0xFFFFFFFFFFFFFFFF}, // distance 64
	}

	result := GroupNearDuplicates([][]PhotoItem{{a, b}}, hashes, defaultThresholds())
	if len(result.VerySimilar) != 0 || len(result.PossiblySimilar) != 0 {
		t.Error("expected no groups when both distances exceed every threshold")
	}
	if result.Comparisons != 1 {
		t.Errorf("Comparisons = %d, want 1", result.Comparisons)
	}
}

func TestHammingDistance(t *testing.T) {
	t.Parallel()

	if hammingDistance(0, 0) != 0 {
		t.Error("distance(0,0) should be 0")
	}
	if hammingDistance(0, 0xFFFFFFFFFFFFFFFF) != 64 {
		t.Error("distance between all-zero and all-one 64-bit values should be 64")
	}
	if hammingDistance(0b1010, 0b0101) != hammingDistance(0b0101, 0b1010) {
		t.Error("hamming distance should be symmetric")
	}
}

func TestCanonicalPair(t *testing.T) {
	t.Parallel()

	if canonicalPair("b", "a") != canonicalPair("a", "b") {
		t.Error("canonicalPair should be order-independent")
	}
}
