// Package engine orchestrates one catalog synchronization run:
// normalize, snapshot, reconcile, mint, relate, load. A run is a single
// sequential unit of work; concurrency control between runs lives
// entirely in the store's sequences and unique constraints.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"gorm.io/gorm"

	"github.com/pressplay/gametracker/internal/catalog"
	"github.com/pressplay/gametracker/internal/catalog/load"
	"github.com/pressplay/gametracker/internal/catalog/mint"
	"github.com/pressplay/gametracker/internal/catalog/normalize"
	"github.com/pressplay/gametracker/internal/catalog/reconcile"
	"github.com/pressplay/gametracker/internal/catalog/relation"
	"github.com/pressplay/gametracker/internal/catalog/state"
)

type Engine struct {
	db  *gorm.DB
	log *slog.Logger
}

func New(db *gorm.DB, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{db: db, log: log}
}

// SyncBatch decodes and synchronizes one staged batch.
func (e *Engine) SyncBatch(ctx context.Context, data []byte) (*catalog.Report, error) {
	records, dropped, err := normalize.DecodeBatch(data)
	if err != nil {
		return nil, err
	}
	return e.SyncRecords(ctx, records, dropped)
}

// SyncRecords runs one synchronization pass over already-normalized
// records. Dropped records are carried into the report for observability
// but take no part in the run.
func (e *Engine) SyncRecords(ctx context.Context, records []catalog.Record, dropped []catalog.DroppedRecord) (*catalog.Report, error) {
	report := &catalog.Report{
		Received:      len(records) + len(dropped),
		Dropped:       dropped,
		NewDimensions: make(map[catalog.Dimension]int, len(catalog.Dimensions)),
		Assignments:   make(map[catalog.Dimension]int, len(catalog.Dimensions)),
	}
	for _, d := range dropped {
		e.log.Warn("record dropped", "index", d.Index, "app_id", d.AppID, "reason", d.Reason)
	}

	snap, err := state.Load(ctx, e.db)
	if err != nil {
		return nil, fmt.Errorf("load existing state: %w", err)
	}

	delta := reconcile.Diff(records, snap)
	report.AlreadyKnown = delta.Known + delta.Duplicates
	e.log.Info("batch reconciled",
		"received", report.Received,
		"new_games", len(delta.NewGames),
		"already_known", report.AlreadyKnown,
		"new_stores", len(delta.NewStores),
	)

	minter := mint.New(e.db)

	storeIDs := maps.Clone(snap.Stores)
	if storeIDs == nil {
		storeIDs = make(map[string]int64)
	}
	var storeRows []catalog.StoreRow
	if n := len(delta.NewStores); n > 0 {
		first, err := minter.Reserve(ctx, mint.SeqStore, n)
		if err != nil {
			return nil, fmt.Errorf("mint store ids: %w", err)
		}
		for i, name := range delta.NewStores {
			id := first + int64(i)
			storeIDs[name] = id
			storeRows = append(storeRows, catalog.StoreRow{ID: id, Name: name})
		}
	}

	var gameRows []catalog.GameRow
	if n := len(delta.NewGames); n > 0 {
		first, err := minter.Reserve(ctx, mint.SeqGame, n)
		if err != nil {
			return nil, fmt.Errorf("mint game ids: %w", err)
		}
		for i, rec := range delta.NewGames {
			gameRows = append(gameRows, catalog.GameRow{
				ID:      first + int64(i),
				StoreID: storeIDs[rec.Store],
				Record:  rec,
			})
		}
	}

	merged := make(map[catalog.Dimension]map[string]int64, len(catalog.Dimensions))
	dimRows := make(map[catalog.Dimension][]catalog.DimensionRow, len(catalog.Dimensions))
	for _, dim := range catalog.Dimensions {
		m := maps.Clone(snap.Dimensions[dim])
		if m == nil {
			m = make(map[string]int64)
		}
		if vals := delta.NewValues[dim]; len(vals) > 0 {
			first, err := minter.Reserve(ctx, dim.String(), len(vals))
			if err != nil {
				return nil, fmt.Errorf("mint %s ids: %w", dim, err)
			}
			for i, v := range vals {
				id := first + int64(i)
				m[v] = id
				dimRows[dim] = append(dimRows[dim], catalog.DimensionRow{ID: id, Name: v})
			}
		}
		merged[dim] = m
	}

	assignments, err := relation.Build(gameRows, merged)
	if err != nil {
		return nil, err
	}

	res, err := load.New(e.db, e.log).Load(ctx, &catalog.ChangeSet{
		Stores:      storeRows,
		Dimensions:  dimRows,
		Games:       gameRows,
		Assignments: assignments,
	})
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	report.NewStores = int(res.Stores)
	report.NewGames = int(res.Games)
	for _, dim := range catalog.Dimensions {
		report.NewDimensions[dim] = int(res.Dimensions[dim])
		report.Assignments[dim] = int(res.Assignments[dim])
	}
	return report, nil
}
