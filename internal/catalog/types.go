// Package catalog holds the domain types shared by the synchronization
// pipeline: the canonical game record, the closed set of reference
// dimensions, and the row shapes that flow from reconciliation into the
// loader.
package catalog

import "time"

// Dimension enumerates the reference dimensions a game is tagged with.
// The set is closed on purpose: each dimension has its own table and
// assignment table, and the repo dispatches on this tag instead of on
// column-name strings.
type Dimension int

const (
	Genre Dimension = iota
	Developer
	Publisher
)

// Dimensions lists every dimension in a fixed order. Pipeline stages
// iterate this slice so minting and loading stay deterministic.
var Dimensions = []Dimension{Genre, Developer, Publisher}

func (d Dimension) String() string {
	switch d {
	case Genre:
		return "genre"
	case Developer:
		return "developer"
	case Publisher:
		return "publisher"
	}
	return "unknown"
}

// Record is the canonical shape of one scraped game after normalization.
// Nullable attributes are pointers; absence never blocks a load.
type Record struct {
	Store string
	AppID string
	Name  string
	URL   string

	ReleaseDate         *time.Time
	Description         *string
	StorageRequirements *string
	Price               int64 // minor currency units, 0 = free
	Currency            string
	ImageURL            string

	Genres     []string
	Developers []string
	Publishers []string
}

// Values returns the dimension values the record references.
func (r *Record) Values(d Dimension) []string {
	switch d {
	case Genre:
		return r.Genres
	case Developer:
		return r.Developers
	case Publisher:
		return r.Publishers
	}
	return nil
}

// GameKey is the natural key of a game row.
type GameKey struct {
	StoreID int64
	AppID   string
}

// StoreRow is a storefront pending first-sight insertion.
type StoreRow struct {
	ID   int64
	Name string
}

// DimensionRow is a dimension value with its minted identifier.
type DimensionRow struct {
	ID   int64
	Name string
}

// GameRow is a new game with its minted identifier and resolved store.
type GameRow struct {
	ID      int64
	StoreID int64
	Record  Record
}

// Key returns the game's natural key.
func (g *GameRow) Key() GameKey {
	return GameKey{StoreID: g.StoreID, AppID: g.Record.AppID}
}

// AssignmentRow joins a dimension value to a game. The natural keys ride
// along so the loader can re-resolve both sides after a write-time
// conflict race.
type AssignmentRow struct {
	DimensionID int64
	GameID      int64

	Name  string
	Store string
	AppID string
}

// ChangeSet is everything one run intends to write.
type ChangeSet struct {
	Stores      []StoreRow
	Dimensions  map[Dimension][]DimensionRow
	Games       []GameRow
	Assignments map[Dimension][]AssignmentRow
}

// DroppedRecord reports a record excluded from a run, with the reason.
type DroppedRecord struct {
	Index  int
	AppID  string
	Reason string
}

// Report summarizes one synchronization run for downstream consumers.
type Report struct {
	Received     int
	AlreadyKnown int
	NewStores    int
	NewGames     int

	NewDimensions map[Dimension]int
	Assignments   map[Dimension]int

	Dropped []DroppedRecord
}
