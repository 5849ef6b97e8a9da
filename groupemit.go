package photodedup

import (
	"crypto/sha1" //nolint:gosec // not used for security, just a stable short id
	"encoding/hex"
	"strings"
)

// emitGroup builds a Group from a connected component's members, which must
// already be sorted by (create_time, id).
func emitGroup(category Category, members []PhotoItem, explanation string) Group {
	earliest := members[0]
	latest := members[len(members)-1]

	ids := make([]string, len(members))
	deepLinks := make([]string, 0, len(members))
	for i, m := range members {
		ids[i] = m.ID
		if m.DeepLink != "" {
			deepLinks = append(deepLinks, m.DeepLink)
		}
	}

	return Group{
		GroupID:            groupID(category, ids),
		Category:           category,
		Items:              members,
		RepresentativePair: RepresentativePair{Earliest: earliest, Latest: latest},
		MoreCount:          maxInt(len(members)-2, 0),
		Explanation:        explanation,
		DeepLinks:          deepLinks,
	}
}

// groupID is "{category}-{first12hex(SHA1(ids joined by '|')))}".
func groupID(category Category, ids []string) string {
	sum := sha1.Sum([]byte(strings.Join(ids, "|"))) //nolint:gosec // stable id, not a security boundary
	return category.String() + "-" + hex.EncodeToString(sum[:])[:12]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
