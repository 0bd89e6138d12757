package services

import "strings"

// MatchRegion reports whether a professional's configured region matches a
// lead's free-text region label.
//
// The rule, in order:
//  1. comparison is case-insensitive and ignores surrounding whitespace;
//  2. the configured region matches if it equals the last comma-separated
//     component of the lead label (the district in labels like
//     "Corroios, Seixal, Setúbal");
//  3. otherwise it matches if it appears anywhere in the label as a
//     substring.
//
// The heuristic is deliberately isolated here so it can be replaced by a
// real geographic hierarchy join without touching callers.
func MatchRegion(configured, leadLabel string) bool {
	configured = strings.ToLower(strings.TrimSpace(configured))
	leadLabel = strings.ToLower(strings.TrimSpace(leadLabel))
	if configured == "" || leadLabel == "" {
		return false
	}

	parts := strings.Split(leadLabel, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	if configured == last {
		return true
	}
	return strings.Contains(leadLabel, configured)
}

// MatchesAnyRegion applies MatchRegion over a professional's region list.
// An empty list means the professional covers all regions.
func MatchesAnyRegion(configured []string, leadLabel string) bool {
	if len(configured) == 0 {
		return true
	}
	for _, region := range configured {
		if MatchRegion(region, leadLabel) {
			return true
		}
	}
	return false
}
