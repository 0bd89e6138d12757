package handlers

import (
	"net/http"

	"github.com/oficio-app/backend/internal/pricing"
)

type categoryInfo struct {
	Name string `json:"name"`
	Cost int    `json:"cost"`
}

// ListCategories handles GET /v1/categories (public, no auth): every known
// category with its current lead cost.
func ListCategories(w http.ResponseWriter, _ *http.Request) {
	names := pricing.Categories()
	out := make([]categoryInfo, 0, len(names))
	for _, name := range names {
		out = append(out, categoryInfo{Name: name, Cost: pricing.Cost(name)})
	}
	writeJSON(w, http.StatusOK, out)
}
