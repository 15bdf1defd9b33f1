// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Progress values are recomputed on every read; nothing is cached here.
package query

import (
	"context"

	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ALL BADGES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAllBadgesHandler lists every badge definition.
type GetAllBadgesHandler struct {
	badges badge.Repository
}

// NewGetAllBadgesHandler creates a new GetAllBadgesHandler.
func NewGetAllBadgesHandler(badges badge.Repository) *GetAllBadgesHandler {
	return &GetAllBadgesHandler{badges: badges}
}

// Handle returns all badge definitions.
func (h *GetAllBadgesHandler) Handle(ctx context.Context) ([]badge.Definition, error) {
	defs, err := h.badges.FetchAllDefinitions(ctx)
	if err != nil {
		return nil, shared.StoreError("badge", "FetchAllDefinitions", err)
	}
	if defs == nil {
		defs = []badge.Definition{}
	}
	return defs, nil
}
