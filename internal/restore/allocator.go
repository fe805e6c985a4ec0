package restore

import (
	"context"
	"fmt"
)

const (
	fallbackCollectionName        = "Imported Documents"
	fallbackCollectionDescription = "Default collection for imported documents without collections"
)

// fallbackCollectionSort keeps documents in manual (insertion) order.
var fallbackCollectionSort = map[string]any{"field": "index", "direction": "asc"}

// FallbackAllocator creates the collection that receives documents exported
// without one.
type FallbackAllocator struct {
	store  Store
	clock  Clock
	ids    IDGenerator
	logger Logger

	// reuse keeps one fallback per team for the rest of the run instead of
	// creating one per request.
	reuse   bool
	perTeam map[string]string
	created int
}

// NewFallbackAllocator creates an allocator. With reuse false every call to
// Allocate creates a new collection.
func NewFallbackAllocator(store Store, clock Clock, ids IDGenerator, logger Logger, reuse bool) *FallbackAllocator {
	return &FallbackAllocator{
		store:   store,
		clock:   clock,
		ids:     ids,
		logger:  logger,
		reuse:   reuse,
		perTeam: make(map[string]string),
	}
}

// Allocate inserts a fallback collection owned by teamID and returns its id.
func (a *FallbackAllocator) Allocate(ctx context.Context, teamID string) (string, error) {
	if a.reuse {
		if id, ok := a.perTeam[teamID]; ok {
			return id, nil
		}
	}

	now := timestamp(a.clock.Now())
	id := a.ids.New()
	row := Record{
		"id":          id,
		"name":        fallbackCollectionName,
		"description": fallbackCollectionDescription,
		"teamId":      teamID,
		"sharing":     true,
		"permission":  nil,
		"sort":        fallbackCollectionSort,
		"createdAt":   now,
		"updatedAt":   now,
	}
	for k, v := range row {
		sv, err := storable(v)
		if err != nil {
			return "", err
		}
		row[k] = sv
	}

	if err := a.store.InsertRow(ctx, "collections", row); err != nil {
		return "", fmt.Errorf("inserting fallback collection: %w", err)
	}

	a.created++
	if a.reuse {
		a.perTeam[teamID] = id
	}
	a.logger.Info("created fallback collection", "collection", id, "team", teamID)
	return id, nil
}

// Created returns how many fallback collections this allocator inserted.
func (a *FallbackAllocator) Created() int {
	return a.created
}
