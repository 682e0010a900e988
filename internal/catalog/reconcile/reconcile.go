// Package reconcile computes what a batch introduces that the store does
// not already have: new games by (store, app_id), new stores by name,
// and the new dimension values referenced by the new games.
package reconcile

import (
	"github.com/pressplay/gametracker/internal/catalog"
	"github.com/pressplay/gametracker/internal/catalog/state"
)

// Delta is the outcome of reconciling one batch against a snapshot.
// Slice order is deterministic (input order / first appearance) because
// minted identifiers are zipped onto it downstream.
type Delta struct {
	NewGames   []catalog.Record
	NewStores  []string
	NewValues  map[catalog.Dimension][]string
	Known      int // records whose natural key is already loaded
	Duplicates int // records repeated within the batch itself
}

// Diff splits the batch into new and already-known games, then collects
// the distinct dimension values referenced by the new games only. Values
// match by exact string equality; there is no case folding or trimming.
func Diff(records []catalog.Record, snap *state.Snapshot) *Delta {
	d := &Delta{NewValues: make(map[catalog.Dimension][]string, len(catalog.Dimensions))}

	type batchKey struct{ store, appID string }
	seen := make(map[batchKey]struct{}, len(records))
	seenStore := make(map[string]struct{})

	for _, rec := range records {
		bk := batchKey{rec.Store, rec.AppID}
		if _, dup := seen[bk]; dup {
			d.Duplicates++
			continue
		}
		seen[bk] = struct{}{}

		if storeID, ok := snap.Stores[rec.Store]; ok {
			key := catalog.GameKey{StoreID: storeID, AppID: rec.AppID}
			if _, known := snap.Games[key]; known {
				d.Known++
				continue
			}
		} else if _, s := seenStore[rec.Store]; !s {
			// first sight of this storefront
			seenStore[rec.Store] = struct{}{}
			d.NewStores = append(d.NewStores, rec.Store)
		}
		d.NewGames = append(d.NewGames, rec)
	}

	for _, dim := range catalog.Dimensions {
		existing := snap.Dimensions[dim]
		seenVal := make(map[string]struct{})
		for i := range d.NewGames {
			for _, v := range d.NewGames[i].Values(dim) {
				if _, ok := seenVal[v]; ok {
					continue
				}
				seenVal[v] = struct{}{}
				if _, ok := existing[v]; ok {
					continue
				}
				d.NewValues[dim] = append(d.NewValues[dim], v)
			}
		}
	}
	return d
}
