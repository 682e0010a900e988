// Package load commits one run's change set to the relational store.
// All writes happen inside a single transaction and every insert carries
// an ignore-on-conflict clause keyed on the natural key, so re-running a
// batch after a crash is a no-op for rows already committed.
package load

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/pressplay/gametracker/internal/catalog"
	repocatalog "github.com/pressplay/gametracker/internal/repo/gorm/catalog"
)

// State tracks a run through the loader's write phases.
type State int

const (
	StatePending State = iota
	StateDimensionsWritten
	StateGamesWritten
	StateAssignmentsWritten
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateDimensionsWritten:
		return "DIMENSIONS_WRITTEN"
	case StateGamesWritten:
		return "GAMES_WRITTEN"
	case StateAssignmentsWritten:
		return "ASSIGNMENTS_WRITTEN"
	case StateCommitted:
		return "COMMITTED"
	}
	return "UNKNOWN"
}

// Result reports what a run actually wrote. Counts come from rows
// affected, so re-delivered rows that hit a conflict do not inflate them.
type Result struct {
	State       State
	Stores      int64
	Games       int64
	Dimensions  map[catalog.Dimension]int64
	Assignments map[catalog.Dimension]int64
}

type Loader struct {
	db  *gorm.DB
	log *slog.Logger
}

func New(db *gorm.DB, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{db: db, log: log}
}

// Load writes the change set in order: stores and dimension rows, then
// game rows, then assignment rows. Assignment rows are re-resolved
// against the ids confirmed present after the upserts, which defends
// against a row losing a natural-key race to a concurrent run. Any
// failure before commit rolls the whole unit back.
func (l *Loader) Load(ctx context.Context, cs *catalog.ChangeSet) (*Result, error) {
	res := &Result{
		State:       StatePending,
		Dimensions:  make(map[catalog.Dimension]int64, len(catalog.Dimensions)),
		Assignments: make(map[catalog.Dimension]int64, len(catalog.Dimensions)),
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repocatalog.NewRepo(tx)

		n, err := r.InsertStores(ctx, cs.Stores)
		if err != nil {
			return fmt.Errorf("write stores: %w", err)
		}
		res.Stores = n
		storeIDs, err := r.StoreIDs(ctx)
		if err != nil {
			return fmt.Errorf("confirm stores: %w", err)
		}

		for _, dim := range catalog.Dimensions {
			n, err := r.InsertDimensions(ctx, dim, cs.Dimensions[dim])
			if err != nil {
				return fmt.Errorf("write %s rows: %w", dim, err)
			}
			res.Dimensions[dim] = n
		}
		res.State = StateDimensionsWritten
		l.log.Debug("run state", "state", res.State.String())

		games, err := remapStores(cs.Games, storeIDs)
		if err != nil {
			return err
		}
		n, err = r.InsertGames(ctx, games)
		if err != nil {
			return fmt.Errorf("write games: %w", err)
		}
		res.Games = n
		res.State = StateGamesWritten
		l.log.Debug("run state", "state", res.State.String())

		keys := make([]catalog.GameKey, len(games))
		for i := range games {
			keys[i] = games[i].Key()
		}
		confirmed, err := r.GameIDsByKey(ctx, keys)
		if err != nil {
			return fmt.Errorf("confirm games: %w", err)
		}

		for _, dim := range catalog.Dimensions {
			rows, err := l.resolveAssignments(ctx, r, dim, cs.Assignments[dim], storeIDs, confirmed)
			if err != nil {
				return err
			}
			n, err := r.InsertAssignments(ctx, dim, rows)
			if err != nil {
				return fmt.Errorf("write %s assignments: %w", dim, err)
			}
			res.Assignments[dim] = n
		}
		res.State = StateAssignmentsWritten
		l.log.Debug("run state", "state", res.State.String())
		return nil
	})
	if err != nil {
		// rolled back; no partial writes are observable
		return nil, err
	}

	res.State = StateCommitted
	l.log.Info("run committed",
		"stores", res.Stores,
		"games", res.Games,
		"genres", res.Dimensions[catalog.Genre],
		"developers", res.Dimensions[catalog.Developer],
		"publishers", res.Dimensions[catalog.Publisher],
	)
	return res, nil
}

// remapStores rewrites each game's store id through the confirmed store
// table. A store missing after its own upsert indicates a broken change
// set and fails the run.
func remapStores(games []catalog.GameRow, storeIDs map[string]int64) ([]catalog.GameRow, error) {
	out := make([]catalog.GameRow, len(games))
	copy(out, games)
	for i := range out {
		id, ok := storeIDs[out[i].Record.Store]
		if !ok {
			return nil, fmt.Errorf("store %q missing after upsert", out[i].Record.Store)
		}
		out[i].StoreID = id
	}
	return out, nil
}

// resolveAssignments re-resolves each assignment row's natural keys
// against the confirmed ids. A game that lost a write-time race keeps
// its already-committed id; a dimension name missing after its own
// upsert is a referential violation and fails the run.
func (l *Loader) resolveAssignments(ctx context.Context, r *repocatalog.Repo, dim catalog.Dimension,
	rows []catalog.AssignmentRow, storeIDs map[string]int64, confirmed map[catalog.GameKey]int64) ([]catalog.AssignmentRow, error) {

	if len(rows) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, a := range rows {
		if _, ok := seen[a.Name]; ok {
			continue
		}
		seen[a.Name] = struct{}{}
		names = append(names, a.Name)
	}
	dimIDs, err := r.DimensionIDs(ctx, dim, names)
	if err != nil {
		return nil, fmt.Errorf("confirm %s rows: %w", dim, err)
	}

	out := make([]catalog.AssignmentRow, 0, len(rows))
	for _, a := range rows {
		dimID, ok := dimIDs[a.Name]
		if !ok {
			return nil, fmt.Errorf("%s %q missing after upsert", dim, a.Name)
		}
		key := catalog.GameKey{StoreID: storeIDs[a.Store], AppID: a.AppID}
		gameID, ok := confirmed[key]
		if !ok {
			l.log.Warn("dropping assignment for game not present after upsert",
				"dimension", dim.String(), "value", a.Name, "store", a.Store, "app_id", a.AppID)
			continue
		}
		if gameID != a.GameID {
			l.log.Warn("game lost insert race, reattaching assignment",
				"store", a.Store, "app_id", a.AppID, "minted_id", a.GameID, "committed_id", gameID)
		}
		a.DimensionID = dimID
		a.GameID = gameID
		out = append(out, a)
	}
	return out, nil
}
