package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/ffn-meets/internal/meet"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate  SortOrder = "date"
	SortByLevel SortOrder = "level"
	SortByName  SortOrder = "name"
)

var levelOrder = map[meet.Level]int{
	meet.LevelInternational: 0,
	meet.LevelNational:      1,
	meet.LevelRegional:      2,
	meet.LevelDepartemental: 3,
}

// sortCompetitions sorts competitions in place. Unknown orders keep the
// page order.
func sortCompetitions(comps []meet.Competition, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(comps, func(i, j int) bool {
			return compareByDate(comps[i], comps[j])
		})
	case SortByLevel:
		sort.SliceStable(comps, func(i, j int) bool {
			if comps[i].Level != comps[j].Level {
				return levelOrder[comps[i].Level] < levelOrder[comps[j].Level]
			}
			return compareByDate(comps[i], comps[j])
		})
	case SortByName:
		sort.SliceStable(comps, func(i, j int) bool {
			a, b := meet.Fold(comps[i].Name), meet.Fold(comps[j].Name)
			if a != b {
				return a < b
			}
			return compareByDate(comps[i], comps[j])
		})
	}
}

// compareByDate orders by start date, undated competitions last.
func compareByDate(a, b meet.Competition) bool {
	da, db := a.StartDate, b.StartDate
	if da.Unix() <= 0 || db.Unix() <= 0 {
		if da.Unix() > 0 {
			return true
		}
		if db.Unix() > 0 {
			return false
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	}
	return da.Before(db)
}
