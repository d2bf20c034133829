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

import (
	"fmt"
	"math"
	"testing"
)

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "solve for x", b: "solve for x", want: 1.0},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "abc", b: "", want: 0},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
		// matched blocks "abc" (3 runes), total 8 runes: 2*3/8.
		{name: "partial overlap", a: "abcd", b: "abcf", want: 0.75},
		// "ab" matches out of "ab"+"ba": alignment finds one 2-block.
		{name: "transposition", a: "ab", b: "ba", want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimilarityRatio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SimilarityRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarityRatio_Symmetric(t *testing.T) {
	a := "Prove that the sum of two even numbers is even."
	b := "Prove that the sum of two odd numbers is even."
	if got, rev := SimilarityRatio(a, b), SimilarityRatio(b, a); math.Abs(got-rev) > 1e-9 {
		t.Errorf("ratio not symmetric: %v vs %v", got, rev)
	}
}

func TestNoveltyGuard_IsRepetitive(t *testing.T) {
	guard := NewNoveltyGuard(0.8, 16)
	task := "Compute the integral of x^2 from 0 to 1."

	if guard.IsRepetitive(task) {
		t.Error("empty history must not flag anything")
	}

	guard.Remember(task)
	if !guard.IsRepetitive(task) {
		t.Error("exact duplicate must be flagged")
	}
	if !guard.IsRepetitive("Compute the integral of x^3 from 0 to 1.") {
		t.Error("near duplicate above threshold must be flagged")
	}
	if guard.IsRepetitive("Design a graph coloring heuristic for sparse graphs.") {
		t.Error("unrelated task must not be flagged")
	}
}

func TestNoveltyGuard_IsRepetitive_DoesNotMutate(t *testing.T) {
	guard := NewNoveltyGuard(0.8, 16)
	guard.Remember("task one")

	for i := 0; i < 5; i++ {
		guard.IsRepetitive("task one")
	}
	if guard.Len() != 1 {
		t.Errorf("check mutated history: len = %d, want 1", guard.Len())
	}
}

func TestNoveltyGuard_FIFOEviction(t *testing.T) {
	guard := NewNoveltyGuard(0.99, 3)
	for i := 0; i < 5; i++ {
		guard.Remember(fmt.Sprintf("completely distinct task number %d with unique content", i))
	}

	if guard.Len() != 3 {
		t.Fatalf("history len = %d, want 3", guard.Len())
	}
	// Oldest entries evicted: 0 and 1 are forgotten, 4 is remembered.
	if guard.IsRepetitive("completely distinct task number 0 with unique content") {
		t.Error("evicted entry still flagged")
	}
	if !guard.IsRepetitive("completely distinct task number 4 with unique content") {
		t.Error("retained entry not flagged")
	}
}

func TestNewNoveltyGuard_CoercesInvalidConfig(t *testing.T) {
	guard := NewNoveltyGuard(-1, 0)
	guard.Remember("some task text")
	// Defaults apply: threshold 0.8 flags an exact duplicate.
	if !guard.IsRepetitive("some task text") {
		t.Error("coerced guard must still flag duplicates")
	}
}
