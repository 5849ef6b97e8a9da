package photodedup

import "sort"

// GroupExactDuplicates buckets items by their SHA-256 byte hash (only items
// present in byteHashes participate) and emits one EXACT Group per bucket of
// size ≥ 2, sorted by (create_time, id).
func GroupExactDuplicates(items []PhotoItem, byteHashes map[string]string) []Group {
	byDigest := make(map[string][]PhotoItem)
	for _, item := range items {
		digest, ok := byteHashes[item.ID]
		if !ok {
			continue
		}
		byDigest[digest] = append(byDigest[digest], item)
	}

	digests := make([]string, 0, len(byDigest))
	for d, members := range byDigest {
		if len(members) >= 2 {
			digests = append(digests, d)
		}
	}
	sort.Strings(digests)

	groups := make([]Group, 0, len(digests))
	for _, d := range digests {
		members := byDigest[d]
		sortByTimeThenID(members)
		groups = append(groups, emitGroup(CategoryExact, members, "Byte-identical content (SHA-256 match)."))
	}
	return groups
}

// ExactDuplicateIDs returns the set of item ids whose byte digest appears at
// least twice in byteHashes.
func ExactDuplicateIDs(byteHashes map[string]string) map[string]bool {
	counts := make(map[string]int)
	for _, digest := range byteHashes {
		counts[digest]++
	}
	ids := make(map[string]bool)
	for id, digest := range byteHashes {
		if counts[digest] >= 2 {
			ids[id] = true
		}
	}
	return ids
}
