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
	"regexp"
	"strings"
)

var boxedPattern = regexp.MustCompile(`\\boxed\{([^}]*)\}`)

const (
	finalAnswerMarker   = "final answer"
	closingAnswerMarker = "</final_answer>"
)

// NormalizeAnswer extracts the comparable answer string from a raw executor
// generation. Priority order:
//
//  1. Last \boxed{...} group, if any.
//  2. Text after the last case-insensitive "final answer" occurrence,
//     stripped of leading punctuation and whitespace.
//  3. Text before a closing </final_answer> marker.
//  4. The trimmed full text.
//
// Majority voting compares these normalized strings, so the rules must stay
// stable across executor versions.
func NormalizeAnswer(text string) string {
	clean := strings.TrimSpace(text)

	if groups := boxedPattern.FindAllStringSubmatch(clean, -1); len(groups) > 0 {
		return strings.TrimSpace(groups[len(groups)-1][1])
	}

	lower := strings.ToLower(clean)
	if idx := strings.LastIndex(lower, finalAnswerMarker); idx >= 0 {
		snippet := clean[idx+len(finalAnswerMarker):]
		snippet = strings.TrimLeft(snippet, ": ")
		return strings.TrimSpace(snippet)
	}

	if idx := strings.Index(lower, closingAnswerMarker); idx >= 0 {
		return strings.TrimSpace(clean[:idx])
	}

	return clean
}
