package reconcile

import (
	"reflect"
	"testing"

	"github.com/pressplay/gametracker/internal/catalog"
	"github.com/pressplay/gametracker/internal/catalog/state"
)

func rec(store, appID, name string, genres ...string) catalog.Record {
	return catalog.Record{Store: store, AppID: appID, Name: name, Genres: genres}
}

func emptySnapshot() *state.Snapshot {
	return &state.Snapshot{
		Stores: map[string]int64{},
		Games:  map[catalog.GameKey]int64{},
		Dimensions: map[catalog.Dimension]map[string]int64{
			catalog.Genre:     {},
			catalog.Developer: {},
			catalog.Publisher: {},
		},
	}
}

func TestDiffSplitsKnownAndNew(t *testing.T) {
	snap := emptySnapshot()
	snap.Stores["steam"] = 1
	snap.Games[catalog.GameKey{StoreID: 1, AppID: "10"}] = 100

	d := Diff([]catalog.Record{
		rec("steam", "10", "known game"),
		rec("steam", "20", "new game"),
	}, snap)

	if d.Known != 1 {
		t.Fatalf("expected 1 known, got %d", d.Known)
	}
	if len(d.NewGames) != 1 || d.NewGames[0].AppID != "20" {
		t.Fatalf("wrong new games: %+v", d.NewGames)
	}
	if len(d.NewStores) != 0 {
		t.Fatalf("steam is already loaded, got new stores %v", d.NewStores)
	}
}

func TestDiffDropsBatchDuplicatesFirstWins(t *testing.T) {
	snap := emptySnapshot()
	d := Diff([]catalog.Record{
		rec("steam", "10", "first occurrence"),
		rec("steam", "10", "second occurrence"),
		rec("gog", "10", "same app id, other store"),
	}, snap)

	if d.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate, got %d", d.Duplicates)
	}
	if len(d.NewGames) != 2 {
		t.Fatalf("expected 2 new games, got %+v", d.NewGames)
	}
	if d.NewGames[0].Name != "first occurrence" {
		t.Fatalf("first occurrence should win: %+v", d.NewGames[0])
	}
}

func TestDiffCollectsFirstSightStores(t *testing.T) {
	snap := emptySnapshot()
	snap.Stores["steam"] = 1
	d := Diff([]catalog.Record{
		rec("epic", "a", "one"),
		rec("steam", "b", "two"),
		rec("epic", "c", "three"),
		rec("gog", "d", "four"),
	}, snap)
	if !reflect.DeepEqual(d.NewStores, []string{"epic", "gog"}) {
		t.Fatalf("expected first-appearance store order, got %v", d.NewStores)
	}
}

func TestDiffNewValuesFirstAppearanceOrder(t *testing.T) {
	snap := emptySnapshot()
	snap.Dimensions[catalog.Genre]["Action"] = 5

	d := Diff([]catalog.Record{
		rec("steam", "1", "a", "RPG", "Action", "Indie"),
		rec("steam", "2", "b", "Indie", "Strategy"),
	}, snap)

	want := []string{"RPG", "Indie", "Strategy"}
	if !reflect.DeepEqual(d.NewValues[catalog.Genre], want) {
		t.Fatalf("expected %v, got %v", want, d.NewValues[catalog.Genre])
	}
}

func TestDiffValuesFromNewGamesOnly(t *testing.T) {
	snap := emptySnapshot()
	snap.Stores["steam"] = 1
	snap.Games[catalog.GameKey{StoreID: 1, AppID: "10"}] = 100

	known := rec("steam", "10", "known", "Roguelike")
	d := Diff([]catalog.Record{known}, snap)
	if len(d.NewValues[catalog.Genre]) != 0 {
		t.Fatalf("known game must not contribute values, got %v", d.NewValues[catalog.Genre])
	}
}

func TestDiffExactMatchNoCaseFolding(t *testing.T) {
	snap := emptySnapshot()
	snap.Dimensions[catalog.Genre]["indie"] = 7

	d := Diff([]catalog.Record{rec("steam", "1", "g", "Indie")}, snap)
	if !reflect.DeepEqual(d.NewValues[catalog.Genre], []string{"Indie"}) {
		t.Fatalf("expected Indie treated as new, got %v", d.NewValues[catalog.Genre])
	}
}
