// Package mint allocates surrogate identifiers from counters owned by
// the relational store. Computing max(id)+1 locally is unsafe under
// concurrent runs, so every identifier comes from an atomic increment of
// an id_sequence row.
package mint

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	repocatalog "github.com/pressplay/gametracker/internal/repo/gorm/catalog"
)

// Sequence names for the non-dimension entities. Dimension sequences use
// Dimension.String().
const (
	SeqStore = "store"
	SeqGame  = "game"
)

type Minter struct{ db *gorm.DB }

func New(db *gorm.DB) *Minter { return &Minter{db: db} }

// Reserve draws n consecutive identifiers from the named sequence and
// returns the first. The reservation commits in its own transaction:
// identifiers stay burned even if the surrounding run aborts, so holes
// in the id space are possible but collisions between runs are not.
func (m *Minter) Reserve(ctx context.Context, name string, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	var first int64
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := repocatalog.Sequence{Name: name, Next: 1}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seed sequence %q: %w", name, err)
		}
		// The UPDATE locks the row until commit, so the read below sees
		// only this run's increment.
		res := tx.Model(&repocatalog.Sequence{}).
			Where("name = ?", name).
			Update("next", gorm.Expr("next + ?", n))
		if res.Error != nil {
			return fmt.Errorf("advance sequence %q: %w", name, res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("sequence %q missing", name)
		}
		var s repocatalog.Sequence
		if err := tx.Where("name = ?", name).First(&s).Error; err != nil {
			return fmt.Errorf("read sequence %q: %w", name, err)
		}
		first = s.Next - int64(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return first, nil
}
