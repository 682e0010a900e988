package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	cat "github.com/pressplay/gametracker/internal/catalog"
)

// Repo wraps a gorm handle (a plain DB or an open transaction) with the
// typed reads and idempotent writes the sync engine needs. Constructing
// it on a transaction scopes every call to that transaction.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// StoreIDs returns store_name -> store_id for the whole store table.
func (r *Repo) StoreIDs(ctx context.Context) (map[string]int64, error) {
	var rows []Store
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(rows))
	for _, s := range rows {
		m[s.Name] = s.ID
	}
	return m, nil
}

// GameKeys returns (store_id, app_id) -> game_id for every loaded game.
func (r *Repo) GameKeys(ctx context.Context) (map[cat.GameKey]int64, error) {
	var rows []Game
	err := r.db.WithContext(ctx).
		Select("game_id", "store_id", "app_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	m := make(map[cat.GameKey]int64, len(rows))
	for _, g := range rows {
		m[cat.GameKey{StoreID: g.StoreID, AppID: g.AppID}] = g.ID
	}
	return m, nil
}

// DimensionIDs returns name -> id for one dimension table. A nil names
// slice reads the whole table; otherwise only the named rows.
func (r *Repo) DimensionIDs(ctx context.Context, d cat.Dimension, names []string) (map[string]int64, error) {
	switch d {
	case cat.Genre:
		return r.genreIDs(ctx, names)
	case cat.Developer:
		return r.developerIDs(ctx, names)
	case cat.Publisher:
		return r.publisherIDs(ctx, names)
	}
	return nil, fmt.Errorf("unknown dimension %v", d)
}

func (r *Repo) genreIDs(ctx context.Context, names []string) (map[string]int64, error) {
	q := r.db.WithContext(ctx)
	if names != nil {
		q = q.Where("genre_name IN ?", names)
	}
	var rows []Genre
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(rows))
	for _, g := range rows {
		m[g.Name] = g.ID
	}
	return m, nil
}

func (r *Repo) developerIDs(ctx context.Context, names []string) (map[string]int64, error) {
	q := r.db.WithContext(ctx)
	if names != nil {
		q = q.Where("developer_name IN ?", names)
	}
	var rows []Developer
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(rows))
	for _, d := range rows {
		m[d.Name] = d.ID
	}
	return m, nil
}

func (r *Repo) publisherIDs(ctx context.Context, names []string) (map[string]int64, error) {
	q := r.db.WithContext(ctx)
	if names != nil {
		q = q.Where("publisher_name IN ?", names)
	}
	var rows []Publisher
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(rows))
	for _, p := range rows {
		m[p.Name] = p.ID
	}
	return m, nil
}

// InsertStores upserts store rows, ignoring natural-key conflicts.
// Returns the number of rows actually inserted.
func (r *Repo) InsertStores(ctx context.Context, rows []cat.StoreRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]Store, len(rows))
	for i, s := range rows {
		models[i] = Store{ID: s.ID, Name: s.Name}
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "store_name"}}, DoNothing: true}).
		Create(&models)
	return res.RowsAffected, res.Error
}

// InsertDimensions upserts rows into one dimension table, ignoring
// conflicts on the unique name.
func (r *Repo) InsertDimensions(ctx context.Context, d cat.Dimension, rows []cat.DimensionRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ignoreName := func(col string) clause.Expression {
		return clause.OnConflict{Columns: []clause.Column{{Name: col}}, DoNothing: true}
	}
	db := r.db.WithContext(ctx)
	switch d {
	case cat.Genre:
		models := make([]Genre, len(rows))
		for i, v := range rows {
			models[i] = Genre{ID: v.ID, Name: v.Name}
		}
		res := db.Clauses(ignoreName("genre_name")).Create(&models)
		return res.RowsAffected, res.Error
	case cat.Developer:
		models := make([]Developer, len(rows))
		for i, v := range rows {
			models[i] = Developer{ID: v.ID, Name: v.Name}
		}
		res := db.Clauses(ignoreName("developer_name")).Create(&models)
		return res.RowsAffected, res.Error
	case cat.Publisher:
		models := make([]Publisher, len(rows))
		for i, v := range rows {
			models[i] = Publisher{ID: v.ID, Name: v.Name}
		}
		res := db.Clauses(ignoreName("publisher_name")).Create(&models)
		return res.RowsAffected, res.Error
	}
	return 0, fmt.Errorf("unknown dimension %v", d)
}

// InsertGames upserts game rows, ignoring conflicts on (store_id, app_id).
func (r *Repo) InsertGames(ctx context.Context, rows []cat.GameRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	models := make([]Game, len(rows))
	for i := range rows {
		rec := &rows[i].Record
		models[i] = Game{
			ID:                  rows[i].ID,
			StoreID:             rows[i].StoreID,
			AppID:               rec.AppID,
			Name:                rec.Name,
			ReleaseDate:         rec.ReleaseDate,
			Description:         rec.Description,
			StorageRequirements: rec.StorageRequirements,
			Price:               rec.Price,
			Currency:            rec.Currency,
			ImageURL:            rec.ImageURL,
			URL:                 rec.URL,
		}
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "app_id"}},
			DoNothing: true,
		}).
		Create(&models)
	return res.RowsAffected, res.Error
}

// GameIDsByKey resolves the given natural keys to the game_ids actually
// present in the store.
func (r *Repo) GameIDsByKey(ctx context.Context, keys []cat.GameKey) (map[cat.GameKey]int64, error) {
	if len(keys) == 0 {
		return map[cat.GameKey]int64{}, nil
	}
	appIDs := make([]string, 0, len(keys))
	want := make(map[cat.GameKey]struct{}, len(keys))
	for _, k := range keys {
		appIDs = append(appIDs, k.AppID)
		want[k] = struct{}{}
	}
	var rows []Game
	err := r.db.WithContext(ctx).
		Select("game_id", "store_id", "app_id").
		Where("app_id IN ?", appIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	m := make(map[cat.GameKey]int64, len(keys))
	for _, g := range rows {
		k := cat.GameKey{StoreID: g.StoreID, AppID: g.AppID}
		if _, ok := want[k]; ok {
			m[k] = g.ID
		}
	}
	return m, nil
}

// InsertAssignments writes join rows for one dimension, ignoring
// conflicts on the full (dimension_id, game_id) pair.
func (r *Repo) InsertAssignments(ctx context.Context, d cat.Dimension, rows []cat.AssignmentRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	db := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true})
	switch d {
	case cat.Genre:
		models := make([]GenreAssignment, len(rows))
		for i, a := range rows {
			models[i] = GenreAssignment{GenreID: a.DimensionID, GameID: a.GameID}
		}
		res := db.Create(&models)
		return res.RowsAffected, res.Error
	case cat.Developer:
		models := make([]DeveloperAssignment, len(rows))
		for i, a := range rows {
			models[i] = DeveloperAssignment{DeveloperID: a.DimensionID, GameID: a.GameID}
		}
		res := db.Create(&models)
		return res.RowsAffected, res.Error
	case cat.Publisher:
		models := make([]PublisherAssignment, len(rows))
		for i, a := range rows {
			models[i] = PublisherAssignment{PublisherID: a.DimensionID, GameID: a.GameID}
		}
		res := db.Create(&models)
		return res.RowsAffected, res.Error
	}
	return 0, fmt.Errorf("unknown dimension %v", d)
}

// AlignSequences bumps each id_sequence row above the highest identifier
// already present in its table. Run during migration so catalogs seeded
// outside the engine cannot collide with freshly minted ids.
func (r *Repo) AlignSequences(ctx context.Context) error {
	type entity struct {
		seq   string
		model any
		idCol string
	}
	entities := []entity{
		{"store", &Store{}, "store_id"},
		{"game", &Game{}, "game_id"},
		{cat.Genre.String(), &Genre{}, "genre_id"},
		{cat.Developer.String(), &Developer{}, "developer_id"},
		{cat.Publisher.String(), &Publisher{}, "publisher_id"},
	}
	for _, e := range entities {
		var maxID int64
		err := r.db.WithContext(ctx).Model(e.model).
			Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", e.idCol)).
			Scan(&maxID).Error
		if err != nil {
			return fmt.Errorf("max %s: %w", e.seq, err)
		}
		seed := Sequence{Name: e.seq, Next: maxID + 1}
		err = r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&seed).Error
		if err != nil {
			return fmt.Errorf("seed sequence %s: %w", e.seq, err)
		}
		err = r.db.WithContext(ctx).Model(&Sequence{}).
			Where("name = ? AND next <= ?", e.seq, maxID).
			Update("next", maxID+1).Error
		if err != nil {
			return fmt.Errorf("align sequence %s: %w", e.seq, err)
		}
	}
	return nil
}
