// Package relation expands each new game's list-valued attributes into
// normalized many-to-many assignment rows.
package relation

import (
	"errors"
	"fmt"

	"github.com/pressplay/gametracker/internal/catalog"
)

// ErrUnresolved means a dimension value referenced by a new game has no
// identifier in the merged map. That can only happen if reconciliation
// or minting lost track of the value, so it fails the run rather than
// silently dropping the relation.
var ErrUnresolved = errors.New("unresolved dimension value")

// Build emits one assignment row per (new game, dimension value) pair,
// resolving every value through the merged (existing plus minted) maps.
// Duplicate pairs within the batch collapse to one row.
func Build(games []catalog.GameRow, merged map[catalog.Dimension]map[string]int64) (map[catalog.Dimension][]catalog.AssignmentRow, error) {
	out := make(map[catalog.Dimension][]catalog.AssignmentRow, len(catalog.Dimensions))
	for _, dim := range catalog.Dimensions {
		ids := merged[dim]
		type pair struct{ dim, game int64 }
		seen := make(map[pair]struct{})
		var rows []catalog.AssignmentRow
		for i := range games {
			g := &games[i]
			for _, v := range g.Record.Values(dim) {
				id, ok := ids[v]
				if !ok {
					return nil, fmt.Errorf("%w: %s %q referenced by %s/%s",
						ErrUnresolved, dim, v, g.Record.Store, g.Record.AppID)
				}
				p := pair{id, g.ID}
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				rows = append(rows, catalog.AssignmentRow{
					DimensionID: id,
					GameID:      g.ID,
					Name:        v,
					Store:       g.Record.Store,
					AppID:       g.Record.AppID,
				})
			}
		}
		out[dim] = rows
	}
	return out, nil
}
