package load

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/pressplay/gametracker/internal/catalog"
	repocatalog "github.com/pressplay/gametracker/internal/repo/gorm/catalog"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repocatalog.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// oneGameChangeSet is a minimal complete change set: one store, one
// genre, one game, one assignment.
func oneGameChangeSet() *catalog.ChangeSet {
	return &catalog.ChangeSet{
		Stores: []catalog.StoreRow{{ID: 1, Name: "steam"}},
		Dimensions: map[catalog.Dimension][]catalog.DimensionRow{
			catalog.Genre: {{ID: 1, Name: "Indie"}},
		},
		Games: []catalog.GameRow{{
			ID:      1,
			StoreID: 1,
			Record:  catalog.Record{Store: "steam", AppID: "10", Name: "Stardew Valley", Genres: []string{"Indie"}},
		}},
		Assignments: map[catalog.Dimension][]catalog.AssignmentRow{
			catalog.Genre: {{DimensionID: 1, GameID: 1, Name: "Indie", Store: "steam", AppID: "10"}},
		},
	}
}

func TestLoadCommitsAllPhases(t *testing.T) {
	db := newTestDB(t)
	res, err := New(db, nil).Load(context.Background(), oneGameChangeSet())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("expected COMMITTED, got %s", res.State)
	}
	if res.Stores != 1 || res.Games != 1 {
		t.Fatalf("wrong counts: %+v", res)
	}
	if res.Dimensions[catalog.Genre] != 1 || res.Assignments[catalog.Genre] != 1 {
		t.Fatalf("wrong dimension counts: %+v", res)
	}

	var n int64
	if err := db.Model(&repocatalog.GenreAssignment{}).Count(&n).Error; err != nil {
		t.Fatalf("count assignments: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 assignment row, got %d", n)
	}
}

func TestLoadRerunIsNoop(t *testing.T) {
	db := newTestDB(t)
	l := New(db, nil)
	ctx := context.Background()

	if _, err := l.Load(ctx, oneGameChangeSet()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	res, err := l.Load(ctx, oneGameChangeSet())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("rerun must still commit, got %s", res.State)
	}
	if res.Stores != 0 || res.Games != 0 || res.Dimensions[catalog.Genre] != 0 || res.Assignments[catalog.Genre] != 0 {
		t.Fatalf("rerun must write nothing, got %+v", res)
	}
}

func TestLoadReattachesAfterLostRace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// another run already committed this game under id 500
	r := repocatalog.NewRepo(db)
	if _, err := r.InsertStores(ctx, []catalog.StoreRow{{ID: 1, Name: "steam"}}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	won := []catalog.GameRow{{ID: 500, StoreID: 1, Record: catalog.Record{Store: "steam", AppID: "10", Name: "Stardew Valley"}}}
	if _, err := r.InsertGames(ctx, won); err != nil {
		t.Fatalf("seed winning game: %v", err)
	}

	res, err := New(db, nil).Load(ctx, oneGameChangeSet())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Games != 0 {
		t.Fatalf("losing insert must be ignored, got %d", res.Games)
	}
	if res.Assignments[catalog.Genre] != 1 {
		t.Fatalf("assignment must be reattached, got %+v", res.Assignments)
	}
	var a repocatalog.GenreAssignment
	if err := db.First(&a).Error; err != nil {
		t.Fatalf("read assignment: %v", err)
	}
	if a.GameID != 500 {
		t.Fatalf("assignment must point at the committed id 500, got %d", a.GameID)
	}
}

func TestLoadDropsAssignmentForAbsentGame(t *testing.T) {
	db := newTestDB(t)
	cs := oneGameChangeSet()
	cs.Assignments[catalog.Genre] = append(cs.Assignments[catalog.Genre],
		catalog.AssignmentRow{DimensionID: 1, GameID: 99, Name: "Indie", Store: "steam", AppID: "nope"})

	res, err := New(db, nil).Load(context.Background(), cs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Assignments[catalog.Genre] != 1 {
		t.Fatalf("orphan assignment must be dropped, got %+v", res.Assignments)
	}
}

func TestLoadRollsBackOnBrokenChangeSet(t *testing.T) {
	db := newTestDB(t)
	cs := oneGameChangeSet()
	// a game referencing a store the change set never writes
	cs.Games[0].Record.Store = "itch"

	if _, err := New(db, nil).Load(context.Background(), cs); err == nil {
		t.Fatalf("expected error for missing store")
	}
	var n int64
	if err := db.Model(&repocatalog.Store{}).Count(&n).Error; err != nil {
		t.Fatalf("count stores: %v", err)
	}
	if n != 0 {
		t.Fatalf("store write must roll back, found %d rows", n)
	}
}
