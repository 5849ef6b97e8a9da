package photodedup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Scan runs the full detection pipeline once over items: candidate
// narrowing → byte hashing → exact grouping → hashable-candidate derivation
// → perceptual hashing → near-duplicate grouping → cost estimate. It is a
// synchronous, single-shot call; ctx bounds every fetch performed along the
// way.
func Scan(ctx context.Context, cfg *Config, items []PhotoItem) (*ScanResult, error) {
	if len(items) == 0 {
		return nil, newError(KindEmptyInput, "", nil)
	}

	cfg = cloneConfig(cfg)
	cfg.defaults()

	runID, err := newRunID()
	if err != nil {
		return nil, err
	}

	downloads := NewDownloadManager(cfg.Fetcher, cfg.AllowedDownloadHosts, cfg.FetchTimeout, cfg.FetchHeaders)
	hashing := NewHashingService(downloads)

	metrics := StageMetrics{Counts: StageCounts{SelectedImages: len(items)}}

	// Stage 1: candidate narrowing.
	t0 := time.Now()
	candidateSets := BuildCandidateSets(items)
	metrics.TimingsMs.CandidateNarrowingMs = elapsedMs(t0)
	metrics.Counts.CandidateSets = len(candidateSets)
	for _, set := range candidateSets {
		metrics.Counts.CandidateItems += len(set)
	}
	slog.Debug("photodedup: candidate narrowing complete", "sets", len(candidateSets))

	// Stage 2: byte hashing.
	t0 = time.Now()
	byteHashes := make(map[string]string)
	for _, item := range items {
		if !item.HasDownloadURL() {
			continue
		}
		digest, err := hashing.GetByteHash(ctx, item)
		if err != nil {
			return nil, err
		}
		byteHashes[item.ID] = digest
	}
	metrics.TimingsMs.ByteHashingMs = elapsedMs(t0)
	metrics.Counts.ByteHashes = hashing.ByteHashCount()

	// Stage 3: exact grouping.
	t0 = time.Now()
	groupsExact := GroupExactDuplicates(items, byteHashes)
	exactDuplicateIDs := ExactDuplicateIDs(byteHashes)
	metrics.TimingsMs.ExactGroupingMs = elapsedMs(t0)
	slog.Debug("photodedup: exact grouping complete", "groups", len(groupsExact))

	// Derive hashable candidate sets: drop items without a download URL or
	// already accounted for by an exact-duplicate group.
	hashableSets := make([][]PhotoItem, 0, len(candidateSets))
	for _, set := range candidateSets {
		var filtered []PhotoItem
		for _, item := range set {
			if !item.HasDownloadURL() || exactDuplicateIDs[item.ID] {
				continue
			}
			filtered = append(filtered, item)
		}
		if len(filtered) >= 2 {
			hashableSets = append(hashableSets, filtered)
		}
	}

	// Stage 4: perceptual hashing + near-duplicate grouping.
	t0 = time.Now()
	perceptualHashes, err := computePerceptualHashesConcurrently(ctx, hashing, hashableSets)
	if err != nil {
		return nil, err
	}

	near := GroupNearDuplicates(hashableSets, perceptualHashes, Thresholds{
		DHashVery:     cfg.DHashThresholdVery,
		DHashPossible: cfg.DHashThresholdPossible,
		PHashVery:     cfg.PHashThresholdVery,
		PHashPossible: cfg.PHashThresholdPossible,
	})
	metrics.TimingsMs.PerceptualHashingMs = elapsedMs(t0)
	metrics.Counts.PerceptualHashes = hashing.PerceptualHashCount()
	metrics.Counts.ComparisonsExecuted = near.Comparisons
	metrics.Counts.DownloadsPerformed = downloads.DownloadCount()

	cost := computeCostEstimate(cfg, metrics.Counts)

	return &ScanResult{
		RunID:                 runID,
		InputCount:            len(items),
		StageMetrics:          metrics,
		CostEstimate:          cost,
		GroupsExact:           groupsExact,
		GroupsVerySimilar:     near.VerySimilar,
		GroupsPossiblySimilar: near.PossiblySimilar,
	}, nil
}

// computePerceptualHashesConcurrently hashes every distinct item across
// hashableSets using an errgroup, preserving the "one increment per cache
// miss" counter invariant (guarded inside HashingService) regardless of
// goroutine scheduling.
func computePerceptualHashesConcurrently(ctx context.Context, hashing *HashingService, hashableSets [][]PhotoItem) (map[string]PerceptualHashes, error) {
	seen := make(map[string]PhotoItem)
	for _, set := range hashableSets {
		for _, item := range set {
			seen[item.ID] = item
		}
	}

	results := make(map[string]PerceptualHashes, len(seen))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range seen {
		item := item
		g.Go(func() error {
			hashes, err := hashing.GetPerceptualHashes(gctx, item)
			if err != nil {
				return err
			}
			mu.Lock()
			results[item.ID] = hashes
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func computeCostEstimate(cfg *Config, counts StageCounts) CostEstimate {
	download := float64(counts.DownloadsPerformed) * cfg.CostPerDownload
	hash := float64(counts.ByteHashes)*cfg.CostPerByteHash + float64(counts.PerceptualHashes)*cfg.CostPerPerceptualHash
	comparison := float64(counts.ComparisonsExecuted) * cfg.CostPerComparison

	return CostEstimate{
		TotalCost:      round6(download + hash + comparison),
		DownloadCost:   round6(download),
		HashCost:       round6(hash),
		ComparisonCost: round6(comparison),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func elapsedMs(start time.Time) float64 {
	ms := float64(time.Since(start)) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

func newRunID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// cloneConfig returns a shallow copy so Scan's defaults() mutation never
// leaks back into the caller's Config value.
func cloneConfig(cfg *Config) *Config {
	if cfg == nil {
		cloned := Config{}
		return &cloned
	}
	cloned := *cfg
	return &cloned
}
