// Package pricing maps service categories to lead costs in credits.
// The table is static: a lead's cost is snapshotted at derivation time,
// so changing this table never alters existing leads.
package pricing

import (
	"sort"
	"strings"
)

// DefaultCost applies to any category without a configured group.
const DefaultCost = 5

// costByGroup is the credit cost per category group.
var costByGroup = map[string]int{
	"construction": 10,
	"home":         8,
	"events":       8,
	"auto":         6,
	"lessons":      6,
	"wellness":     5,
	"cleaning":     4,
}

// groupByCategory assigns each known category to its pricing group.
var groupByCategory = map[string]string{
	"remodeling":       "construction",
	"roofing":          "construction",
	"masonry":          "construction",
	"plumbing":         "home",
	"electrical":       "home",
	"painting":         "home",
	"carpentry":        "home",
	"gardening":        "home",
	"moving":           "home",
	"catering":         "events",
	"photography":      "events",
	"dj":               "events",
	"event planning":   "events",
	"car repair":       "auto",
	"car wash":         "auto",
	"tutoring":         "lessons",
	"music lessons":    "lessons",
	"language lessons": "lessons",
	"personal trainer": "wellness",
	"massage":          "wellness",
	"nutrition":        "wellness",
	"house cleaning":   "cleaning",
	"office cleaning":  "cleaning",
	"ironing":          "cleaning",
}

// Cost returns the lead cost in credits for a category. Group names price
// at their group rate; unknown categories fall back to DefaultCost.
// Pure and total: never errors, deterministic.
func Cost(category string) int {
	category = strings.ToLower(strings.TrimSpace(category))
	if group, ok := groupByCategory[category]; ok {
		category = group
	}
	if cost, ok := costByGroup[category]; ok {
		return cost
	}
	return DefaultCost
}

// Categories returns the known category names, sorted.
func Categories() []string {
	out := make([]string, 0, len(groupByCategory))
	for name := range groupByCategory {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
