// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import "sync"

// NoveltyGuard rejects near-duplicate task texts against a bounded history
// of previously accepted tasks.
//
// The guard is an explicitly owned component: construct one per loop
// instance and inject it into the frontier filter. History lives for the
// guard's lifetime and is mutated only through Remember.
//
// The repetition check is an O(history) scan. History is bounded
// (max_history, FIFO eviction), so approximate indexing is unnecessary at
// this scale.
type NoveltyGuard struct {
	mu         sync.Mutex
	threshold  float64
	maxHistory int
	history    []string
}

// NewNoveltyGuard creates a guard. Out-of-range thresholds coerce to the
// 0.8 default; non-positive maxHistory coerces to 256.
func NewNoveltyGuard(threshold float64, maxHistory int) *NoveltyGuard {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	if maxHistory <= 0 {
		maxHistory = 256
	}
	return &NoveltyGuard{threshold: threshold, maxHistory: maxHistory}
}

// IsRepetitive reports whether text is a near-duplicate of any remembered
// text. The check never mutates history, so repeated calls with unchanged
// history yield the same answer.
func (g *NoveltyGuard) IsRepetitive(text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, prev := range g.history {
		if SimilarityRatio(text, prev) >= g.threshold {
			return true
		}
	}
	return false
}

// Remember appends text to the history, evicting oldest entries first once
// the cap is exceeded.
func (g *NoveltyGuard) Remember(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, text)
	if len(g.history) > g.maxHistory {
		g.history = g.history[len(g.history)-g.maxHistory:]
	}
}

// Len returns the current history size.
func (g *NoveltyGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.history)
}

// SimilarityRatio computes the normalized sequence-alignment similarity of
// two strings in [0,1]: 2*M/T where M is the total length of matched blocks
// and T the combined length. Identical strings score 1, disjoint strings 0.
func SimilarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	matched := matchLen(ra, rb)
	return 2 * float64(matched) / float64(total)
}

// matchLen sums the lengths of the matching blocks found by repeatedly
// locating the longest common block and recursing on both sides, the same
// divide-and-conquer alignment difflib uses.
func matchLen(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Positions of each rune in b, for the longest-block scan.
	positions := make(map[rune][]int, len(b))
	for j, r := range b {
		positions[r] = append(positions[r], j)
	}

	bestI, bestJ, bestSize := 0, 0, 0
	// lengths[j] = length of the longest block ending at a[i-1], b[j-1].
	lengths := make(map[int]int)
	for i, r := range a {
		next := make(map[int]int, len(lengths))
		for _, j := range positions[r] {
			size := lengths[j-1] + 1
			next[j] = size
			if size > bestSize {
				bestI, bestJ, bestSize = i-size+1, j-size+1, size
			}
		}
		lengths = next
	}
	if bestSize == 0 {
		return 0
	}

	left := matchLen(a[:bestI], b[:bestJ])
	right := matchLen(a[bestI+bestSize:], b[bestJ+bestSize:])
	return left + bestSize + right
}
