package catalog

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	cat "github.com/pressplay/gametracker/internal/catalog"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestInsertStoresIgnoresNameConflict(t *testing.T) {
	r := NewRepo(newTestDB(t))
	ctx := context.Background()

	n, err := r.InsertStores(ctx, []cat.StoreRow{{ID: 1, Name: "steam"}})
	if err != nil || n != 1 {
		t.Fatalf("first insert: n=%d err=%v", n, err)
	}
	// same name under a different minted id must be ignored
	n, err = r.InsertStores(ctx, []cat.StoreRow{{ID: 2, Name: "steam"}})
	if err != nil {
		t.Fatalf("conflicting insert: %v", err)
	}
	if n != 0 {
		t.Fatalf("conflict must be a no-op, got %d rows", n)
	}
	ids, err := r.StoreIDs(ctx)
	if err != nil {
		t.Fatalf("store ids: %v", err)
	}
	if ids["steam"] != 1 {
		t.Fatalf("first writer must win, got %v", ids)
	}
}

func TestInsertGamesIgnoresNaturalKeyConflict(t *testing.T) {
	r := NewRepo(newTestDB(t))
	ctx := context.Background()

	if _, err := r.InsertStores(ctx, []cat.StoreRow{{ID: 1, Name: "steam"}}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	row := cat.GameRow{ID: 10, StoreID: 1, Record: cat.Record{Store: "steam", AppID: "620", Name: "Portal 2"}}
	if n, err := r.InsertGames(ctx, []cat.GameRow{row}); err != nil || n != 1 {
		t.Fatalf("first insert: n=%d err=%v", n, err)
	}
	row.ID = 11
	n, err := r.InsertGames(ctx, []cat.GameRow{row})
	if err != nil || n != 0 {
		t.Fatalf("redelivery must be ignored: n=%d err=%v", n, err)
	}
	keys, err := r.GameKeys(ctx)
	if err != nil {
		t.Fatalf("game keys: %v", err)
	}
	if keys[cat.GameKey{StoreID: 1, AppID: "620"}] != 10 {
		t.Fatalf("committed id must survive redelivery, got %v", keys)
	}
}

func TestDimensionIDsScopedAndFull(t *testing.T) {
	r := NewRepo(newTestDB(t))
	ctx := context.Background()

	rows := []cat.DimensionRow{{ID: 1, Name: "Indie"}, {ID: 2, Name: "Action"}}
	if _, err := r.InsertDimensions(ctx, cat.Developer, rows); err != nil {
		t.Fatalf("insert developers: %v", err)
	}
	all, err := r.DimensionIDs(ctx, cat.Developer, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("full read: %v %v", all, err)
	}
	some, err := r.DimensionIDs(ctx, cat.Developer, []string{"Indie"})
	if err != nil {
		t.Fatalf("scoped read: %v", err)
	}
	if len(some) != 1 || some["Indie"] != 1 {
		t.Fatalf("scoped read: %v", some)
	}
	// other dimension tables are untouched
	genres, err := r.DimensionIDs(ctx, cat.Genre, nil)
	if err != nil || len(genres) != 0 {
		t.Fatalf("genre table should be empty: %v %v", genres, err)
	}
}

func TestInsertAssignmentsIgnoresPairConflict(t *testing.T) {
	r := NewRepo(newTestDB(t))
	ctx := context.Background()

	rows := []cat.AssignmentRow{{DimensionID: 1, GameID: 2}}
	if n, err := r.InsertAssignments(ctx, cat.Genre, rows); err != nil || n != 1 {
		t.Fatalf("first insert: n=%d err=%v", n, err)
	}
	if n, err := r.InsertAssignments(ctx, cat.Genre, rows); err != nil || n != 0 {
		t.Fatalf("duplicate pair must be ignored: n=%d err=%v", n, err)
	}
}

func TestGameIDsByKeyFiltersByStore(t *testing.T) {
	r := NewRepo(newTestDB(t))
	ctx := context.Background()

	games := []cat.GameRow{
		{ID: 1, StoreID: 1, Record: cat.Record{AppID: "10", Name: "a"}},
		{ID: 2, StoreID: 2, Record: cat.Record{AppID: "10", Name: "b"}},
	}
	if _, err := r.InsertGames(ctx, games); err != nil {
		t.Fatalf("seed games: %v", err)
	}
	got, err := r.GameIDsByKey(ctx, []cat.GameKey{{StoreID: 2, AppID: "10"}})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 1 || got[cat.GameKey{StoreID: 2, AppID: "10"}] != 2 {
		t.Fatalf("same app_id in another store must not leak in: %v", got)
	}
}

func TestAlignSequencesCoversSeededRows(t *testing.T) {
	db := newTestDB(t)
	r := NewRepo(db)
	ctx := context.Background()

	// rows loaded outside the engine, ids chosen by hand
	if _, err := r.InsertStores(ctx, []cat.StoreRow{{ID: 3, Name: "steam"}}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	games := []cat.GameRow{{ID: 41, StoreID: 3, Record: cat.Record{AppID: "10", Name: "g"}}}
	if _, err := r.InsertGames(ctx, games); err != nil {
		t.Fatalf("seed game: %v", err)
	}

	if err := r.AlignSequences(ctx); err != nil {
		t.Fatalf("align: %v", err)
	}

	var s Sequence
	if err := db.Where("name = ?", "game").First(&s).Error; err != nil {
		t.Fatalf("read game sequence: %v", err)
	}
	if s.Next != 42 {
		t.Fatalf("game sequence must clear the seeded max, got %d", s.Next)
	}
	s = Sequence{}
	if err := db.Where("name = ?", "store").First(&s).Error; err != nil {
		t.Fatalf("read store sequence: %v", err)
	}
	if s.Next != 4 {
		t.Fatalf("store sequence must clear the seeded max, got %d", s.Next)
	}

	// aligning again must not move sequences backwards
	if err := db.Model(&Sequence{}).Where("name = ?", "game").Update("next", int64(100)).Error; err != nil {
		t.Fatalf("advance sequence: %v", err)
	}
	if err := r.AlignSequences(ctx); err != nil {
		t.Fatalf("re-align: %v", err)
	}
	s = Sequence{}
	if err := db.Where("name = ?", "game").First(&s).Error; err != nil {
		t.Fatalf("read game sequence: %v", err)
	}
	if s.Next != 100 {
		t.Fatalf("align must never lower a sequence, got %d", s.Next)
	}
}
