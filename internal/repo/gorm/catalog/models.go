// Package catalog provides GORM-based persistence for the game catalog:
// the store, game and dimension tables, their assignment tables, and the
// id_sequence table the key minter draws from.
package catalog

import (
	"time"

	"gorm.io/gorm"
)

// Surrogate keys are minted by the engine, never by the database, so
// every integer primary key disables auto-increment.

type Store struct {
	ID   int64  `gorm:"column:store_id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:store_name;size:64;uniqueIndex;not null"`
}

func (Store) TableName() string { return "store" }

type Genre struct {
	ID   int64  `gorm:"column:genre_id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:genre_name;size:255;uniqueIndex;not null"`
}

func (Genre) TableName() string { return "genre" }

type Developer struct {
	ID   int64  `gorm:"column:developer_id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:developer_name;size:255;uniqueIndex;not null"`
}

func (Developer) TableName() string { return "developer" }

type Publisher struct {
	ID   int64  `gorm:"column:publisher_id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:publisher_name;size:255;uniqueIndex;not null"`
}

func (Publisher) TableName() string { return "publisher" }

// Game rows are immutable once loaded; there is no update path.
// app_id is a string because not every storefront uses numeric ids.
type Game struct {
	ID                  int64      `gorm:"column:game_id;primaryKey;autoIncrement:false"`
	StoreID             int64      `gorm:"column:store_id;uniqueIndex:idx_game_store_app;not null"`
	AppID               string     `gorm:"column:app_id;size:64;uniqueIndex:idx_game_store_app;not null"`
	Name                string     `gorm:"column:game_name;size:255;not null"`
	ReleaseDate         *time.Time `gorm:"column:release_date"`
	Description         *string    `gorm:"column:game_description;type:text"`
	StorageRequirements *string    `gorm:"column:storage_requirements;size:255"`
	Price               int64      `gorm:"column:price;not null"`
	Currency            string     `gorm:"column:currency;size:8"`
	ImageURL            string     `gorm:"column:image_url;size:512"`
	URL                 string     `gorm:"column:url;size:512"`
}

func (Game) TableName() string { return "game" }

// Assignment tables use a composite primary key, which doubles as the
// UNIQUE (dimension_id, game_id) constraint the upserts conflict on.

type GenreAssignment struct {
	GenreID int64 `gorm:"column:genre_id;primaryKey;autoIncrement:false"`
	GameID  int64 `gorm:"column:game_id;primaryKey;autoIncrement:false"`
}

func (GenreAssignment) TableName() string { return "genre_assignment" }

type DeveloperAssignment struct {
	DeveloperID int64 `gorm:"column:developer_id;primaryKey;autoIncrement:false"`
	GameID      int64 `gorm:"column:game_id;primaryKey;autoIncrement:false"`
}

func (DeveloperAssignment) TableName() string { return "developer_assignment" }

type PublisherAssignment struct {
	PublisherID int64 `gorm:"column:publisher_id;primaryKey;autoIncrement:false"`
	GameID      int64 `gorm:"column:game_id;primaryKey;autoIncrement:false"`
}

func (PublisherAssignment) TableName() string { return "publisher_assignment" }

// Sequence is a store-owned monotonic counter. Next is the lowest
// identifier not yet reserved for the named entity.
type Sequence struct {
	Name string `gorm:"column:name;primaryKey;size:32"`
	Next int64  `gorm:"column:next;not null"`
}

func (Sequence) TableName() string { return "id_sequence" }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Store{},
		&Genre{}, &Developer{}, &Publisher{},
		&Game{},
		&GenreAssignment{}, &DeveloperAssignment{}, &PublisherAssignment{},
		&Sequence{},
	)
}
