// Package photodedup groups photographs by near-duplication. Given a set of
// PhotoItems it returns three disjoint groupings — byte-identical duplicates,
// visually very-similar photos, and possibly-similar photos — plus stage
// timings, counts, and a cost estimate.
package photodedup

import (
	"time"
)

// GPSCoord is a latitude/longitude pair.
type GPSCoord struct {
	Latitude  float64
	Longitude float64
}

// PhotoItem is the canonical, immutable description of one photograph.
// Every pipeline stage identifies items by ID (caches, buckets, pair keys,
// group membership). The type has no Equal method: == compares every field.
type PhotoItem struct {
	ID           string
	CreateTime   time.Time // always normalized to UTC
	Filename     string
	MIMEType     string
	Width        int // 0 = unknown
	Height       int // 0 = unknown
	GPS          *GPSCoord
	DownloadURL  string
	DeepLink     string
}

// HasDimensions reports whether both Width and Height are known and positive.
func (p PhotoItem) HasDimensions() bool {
	return p.Width > 0 && p.Height > 0
}

// HasDownloadURL reports whether the item is eligible for the hashing stages.
func (p PhotoItem) HasDownloadURL() bool {
	return p.DownloadURL != ""
}

// PerceptualHashes holds the two 64-bit perceptual fingerprints computed for
// an image. Equality is order-independent (struct equality).
type PerceptualHashes struct {
	DHash uint64
	PHash uint64
}

// Category is the kind of grouping a Group represents.
type Category int

const (
	CategoryExact Category = iota
	CategoryVerySimilar
	CategoryPossiblySimilar
)

// String renders the lowercase form used in group ids.
func (c Category) String() string {
	switch c {
	case CategoryExact:
		return "exact"
	case CategoryVerySimilar:
		return "very_similar"
	case CategoryPossiblySimilar:
		return "possibly_similar"
	default:
		return "unknown"
	}
}

// RepresentativePair names the earliest and latest item of a group by
// (create_time, id) order.
type RepresentativePair struct {
	Earliest PhotoItem
	Latest   PhotoItem
}

// Group is a value-type output record: it references items by copy, never by
// ownership of the original PhotoItem slice.
type Group struct {
	GroupID             string
	Category            Category
	Items               []PhotoItem
	RepresentativePair  RepresentativePair
	MoreCount           int
	Explanation         string
	DeepLinks           []string
}

// StageCounts tallies how much work each pipeline stage performed.
type StageCounts struct {
	SelectedImages       int
	CandidateSets        int
	CandidateItems       int
	ByteHashes           int
	PerceptualHashes     int
	ComparisonsExecuted  int
	DownloadsPerformed   int
}

// StageTimingsMs records wall-clock milliseconds per stage, rounded to 2
// decimal places.
type StageTimingsMs struct {
	CandidateNarrowingMs float64
	ByteHashingMs        float64
	ExactGroupingMs      float64
	PerceptualHashingMs  float64
}

// StageMetrics bundles timings and counts for one scan.
type StageMetrics struct {
	TimingsMs StageTimingsMs
	Counts    StageCounts
}

// CostEstimate is the dollar-cost model of a scan, all fields rounded to 6
// decimal places.
type CostEstimate struct {
	TotalCost      float64
	DownloadCost   float64
	HashCost       float64
	ComparisonCost float64
}

// ScanResult is the full output of one Scan call.
type ScanResult struct {
	RunID                   string
	InputCount              int
	StageMetrics            StageMetrics
	CostEstimate            CostEstimate
	GroupsExact             []Group
	GroupsVerySimilar       []Group
	GroupsPossiblySimilar   []Group
}
