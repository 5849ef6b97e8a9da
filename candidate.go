package photodedup

import (
	"fmt"
	"sort"
)

// AspectClass classifies an item's width:height ratio.
type AspectClass string

const (
	AspectLandscape AspectClass = "landscape"
	AspectPortrait  AspectClass = "portrait"
	AspectSquare    AspectClass = "square"
	AspectUnknown   AspectClass = "unknown"
)

func aspectClassOf(item PhotoItem) AspectClass {
	if !item.HasDimensions() {
		return AspectUnknown
	}
	ratio := float64(item.Width) / float64(item.Height)
	switch {
	case ratio >= 1.2:
		return AspectLandscape
	case ratio <= 0.8:
		return AspectPortrait
	default:
		return AspectSquare
	}
}

func megapixelClassOf(item PhotoItem) string {
	if !item.HasDimensions() {
		return "unknown"
	}
	mp := (item.Width * item.Height) / 1_000_000
	return fmt.Sprintf("%d", mp)
}

// candidateKey is the (date, aspect class, megapixel class) bucket key.
// PhotoItem stores CreateTime already normalized to UTC, so the date
// component uses UTC for every item reaching this stage.
func candidateKey(item PhotoItem) string {
	date := item.CreateTime.UTC().Format("2006-01-02")
	return date + "|" + string(aspectClassOf(item)) + "|" + megapixelClassOf(item)
}

// BuildCandidateSets buckets items by candidateKey, drops buckets smaller
// than 2, sorts each retained bucket by (create_time, id), and returns the
// buckets in ascending key order. Pure and deterministic: permuting the
// input yields byte-identical output.
func BuildCandidateSets(items []PhotoItem) [][]PhotoItem {
	buckets := make(map[string][]PhotoItem)
	for _, item := range items {
		key := candidateKey(item)
		buckets[key] = append(buckets[key], item)
	}

	keys := make([]string, 0, len(buckets))
	for k, v := range buckets {
		if len(v) >= 2 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := make([][]PhotoItem, 0, len(keys))
	for _, k := range keys {
		bucket := buckets[k]
		sortByTimeThenID(bucket)
		result = append(result, bucket)
	}
	return result
}

// sortByTimeThenID sorts items ascending by (create_time, id), the ordering
// used throughout the pipeline for deterministic output.
func sortByTimeThenID(items []PhotoItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].CreateTime, items[j].CreateTime
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return items[i].ID < items[j].ID
	})
}
