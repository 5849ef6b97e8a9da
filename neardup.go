package photodedup

import (
	"sort"
	"strconv"
)

// Thresholds bundles the four Hamming-distance cutoffs that separate very
// similar, possibly similar, and unrelated pairs.
type Thresholds struct {
	DHashVery     int
	DHashPossible int
	PHashVery     int
	PHashPossible int
}

type pairKey struct{ a, b string }

func canonicalPair(a, b string) pairKey {
	if a <= b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// NearDuplicateResult is the output of GroupNearDuplicates: the emitted
// groups plus the comparison count for cost/metrics accounting.
type NearDuplicateResult struct {
	VerySimilar      []Group
	PossiblySimilar  []Group
	Comparisons      int
}

// GroupNearDuplicates enumerates pairs within each candidate set, classifies
// edges by Hamming distance against thresholds, and computes connected
// components under the very/possible precedence rule: an item already in a
// very-similar component never also appears in a possibly-similar one.
func GroupNearDuplicates(candidateSets [][]PhotoItem, hashes map[string]PerceptualHashes, th Thresholds) NearDuplicateResult {
	itemByID := make(map[string]PhotoItem)
	adjacencyVery := make(map[string]map[string]bool)
	adjacencyPossible := make(map[string]map[string]bool)
	seenPairs := make(map[pairKey]bool)

	comparisons := 0

	for _, set := range candidateSets {
		for _, item := range set {
			itemByID[item.ID] = item
		}
		for i := 0; i < len(set); i++ {
			for j := i + 1; j < len(set); j++ {
				a, b := set[i], set[j]
				key := canonicalPair(a.ID, b.ID)
				if seenPairs[key] {
					continue
				}
				seenPairs[key] = true
				comparisons++

				ha, okA := hashes[a.ID]
				hb, okB := hashes[b.ID]
				if !okA || !okB {
					continue
				}

				d := hammingDistance(ha.DHash, hb.DHash)
				p := hammingDistance(ha.PHash, hb.PHash)

				switch {
				case d <= th.DHashVery || p <= th.PHashVery:
					addEdge(adjacencyVery, a.ID, b.ID)
				case d <= th.DHashPossible || p <= th.PHashPossible:
					addEdge(adjacencyPossible, a.ID, b.ID)
				}
			}
		}
	}

	veryComponents := connectedComponents(adjacencyVery, nil)
	veryIDs := make(map[string]bool)
	for _, comp := range veryComponents {
		for _, id := range comp {
			veryIDs[id] = true
		}
	}

	possibleComponents := connectedComponents(adjacencyPossible, veryIDs)

	explainVery := explainThresholds("Perceptual hash match", th.DHashVery, th.PHashVery)
	explainPossible := explainThresholds("Perceptual hash similarity", th.DHashPossible, th.PHashPossible)

	var verySimilar, possiblySimilar []Group
	for _, comp := range veryComponents {
		members := materialize(comp, itemByID)
		sortByTimeThenID(members)
		verySimilar = append(verySimilar, emitGroup(CategoryVerySimilar, members, explainVery))
	}
	for _, comp := range possibleComponents {
		members := materialize(comp, itemByID)
		sortByTimeThenID(members)
		possiblySimilar = append(possiblySimilar, emitGroup(CategoryPossiblySimilar, members, explainPossible))
	}

	sortGroupsByID(verySimilar)
	sortGroupsByID(possiblySimilar)

	return NearDuplicateResult{
		VerySimilar:     verySimilar,
		PossiblySimilar: possiblySimilar,
		Comparisons:     comparisons,
	}
}

func addEdge(adj map[string]map[string]bool, a, b string) {
	if adj[a] == nil {
		adj[a] = make(map[string]bool)
	}
	if adj[b] == nil {
		adj[b] = make(map[string]bool)
	}
	adj[a][b] = true
	adj[b][a] = true
}

// connectedComponents runs BFS over adj, visiting nodes in sorted id order
// for determinism, excluding any node present in the exclude set. Only
// components of size ≥ 2 are returned.
func connectedComponents(adj map[string]map[string]bool, exclude map[string]bool) [][]string {
	nodes := make([]string, 0, len(adj))
	for n := range adj {
		if exclude != nil && exclude[n] {
			continue
		}
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	visited := make(map[string]bool)
	var components [][]string

	for _, start := range nodes {
		if visited[start] {
			continue
		}
		queue := []string{start}
		visited[start] = true
		var comp []string

		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			comp = append(comp, n)

			neighbors := make([]string, 0, len(adj[n]))
			for nb := range adj[n] {
				if exclude != nil && exclude[nb] {
					continue
				}
				neighbors = append(neighbors, nb)
			}
			sort.Strings(neighbors)

			for _, nb := range neighbors {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}

		if len(comp) >= 2 {
			components = append(components, comp)
		}
	}

	return components
}

func materialize(ids []string, itemByID map[string]PhotoItem) []PhotoItem {
	members := make([]PhotoItem, len(ids))
	for i, id := range ids {
		members[i] = itemByID[id]
	}
	return members
}

// sortGroupsByID orders emitted groups deterministically by their first
// member's (create_time, id), matching the overall ascending emission order.
func sortGroupsByID(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Items[0], groups[j].Items[0]
		if !a.CreateTime.Equal(b.CreateTime) {
			return a.CreateTime.Before(b.CreateTime)
		}
		return a.ID < b.ID
	})
}

func explainThresholds(label string, dhash, phash int) string {
	return label + " (dHash ≤ " + strconv.Itoa(dhash) + " or pHash ≤ " + strconv.Itoa(phash) + ")."
}
