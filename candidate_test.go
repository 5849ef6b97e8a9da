package photodedup

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

func TestBuildCandidateSets_DropsSingletonBuckets(t *testing.T) {
	t.Parallel()

	items := []PhotoItem{
		{ID: "a", CreateTime: mustTime(t, "2024-01-01T00:00:00Z"), Width: 4000, Height: 3000},
	}
	sets := BuildCandidateSets(items)
	if len(sets) != 0 {
		t.Errorf("got %d sets, want 0 for a singleton bucket", len(sets))
	}
}

func TestBuildCandidateSets_GroupsByDateAspectMegapixel(t *testing.T) {
	t.Parallel()

	day := mustTime(t, "2024-01-01T00:00:00Z")
	items := []PhotoItem{
		{ID: "b", CreateTime: day.Add(time.Hour), Width: 4000, Height: 3000},
		{ID: "a", CreateTime: day, Width: 4000, Height: 3000},
		{ID: "c", CreateTime: day, Width: 100, Height: 1000}, // different aspect/megapixel
	}
	sets := BuildCandidateSets(items)
	if len(sets) != 1 {
		t.Fatalf("got %d sets, want 1", len(sets))
	}
	got := []string{sets[0][0].ID, sets[0][1].ID}
	want := []string{"a", "b"} // sorted by (create_time, id)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bucket order = %v, want %v", got, want)
	}
}

func TestBuildCandidateSets_DeterministicUnderShuffle(t *testing.T) {
	t.Parallel()

	day := mustTime(t, "2024-01-01T00:00:00Z")
	items := []PhotoItem{
		{ID: "a", CreateTime: day, Width: 4000, Height: 3000},
		{ID: "b", CreateTime: day.Add(time.Minute), Width: 4000, Height: 3000},
		{ID: "c", CreateTime: day.Add(2 * time.Minute), Width: 4000, Height: 3000},
		{ID: "d", CreateTime: day, Width: 100, Height: 100},
		{ID: "e", CreateTime: day.Add(time.Minute), Width: 100, Height: 100},
	}

	first := BuildCandidateSets(items)

	shuffled := make([]PhotoItem, len(items))
	copy(shuffled, items)
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	second := BuildCandidateSets(shuffled)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("shuffled input produced a different candidate-set sequence")
	}
}

func TestAspectClassOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		w, h   int
		want   AspectClass
	}{
		{"landscape", 1200, 1000, AspectLandscape},
		{"portrait", 800, 1000, AspectPortrait},
		{"square", 1000, 1000, AspectSquare},
		{"unknown zero width", 0, 1000, AspectUnknown},
		{"unknown zero height", 1000, 0, AspectUnknown},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := aspectClassOf(PhotoItem{Width: tt.w, Height: tt.h})
			if got != tt.want {
				t.Errorf("aspectClassOf(%d,%d) = %v, want %v", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("time.Parse(%q): %v", s, err)
	}
	return tm
}
