// Package state reads the authoritative natural-key maps a run
// reconciles against. The relational store is the single source of truth
// for "does this natural key already exist".
package state

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pressplay/gametracker/internal/catalog"
	repocatalog "github.com/pressplay/gametracker/internal/repo/gorm/catalog"
)

// Snapshot is one consistent view of the catalog's natural keys.
type Snapshot struct {
	Stores     map[string]int64
	Games      map[catalog.GameKey]int64
	Dimensions map[catalog.Dimension]map[string]int64
}

// Load reads every map inside a single transaction so the run sees one
// consistent snapshot; nothing is read twice mid-run. An unreachable
// store fails the whole run before any reconciliation happens.
func Load(ctx context.Context, db *gorm.DB) (*Snapshot, error) {
	snap := &Snapshot{
		Dimensions: make(map[catalog.Dimension]map[string]int64, len(catalog.Dimensions)),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repocatalog.NewRepo(tx)
		var err error
		if snap.Stores, err = r.StoreIDs(ctx); err != nil {
			return fmt.Errorf("read stores: %w", err)
		}
		if snap.Games, err = r.GameKeys(ctx); err != nil {
			return fmt.Errorf("read games: %w", err)
		}
		for _, d := range catalog.Dimensions {
			m, err := r.DimensionIDs(ctx, d, nil)
			if err != nil {
				return fmt.Errorf("read %s table: %w", d, err)
			}
			snap.Dimensions[d] = m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
