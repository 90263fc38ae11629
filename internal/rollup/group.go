package rollup

import "hourglass/internal/domain"

// Rollup buckets objectives by level. Every bucket is present, possibly empty.
type Rollup struct {
	Day   []domain.Objective `json:"day"`
	Month []domain.Objective `json:"month"`
	Year  []domain.Objective `json:"year"`
}

func (r Rollup) Bucket(l domain.Level) []domain.Objective {
	switch l {
	case domain.LevelDay:
		return r.Day
	case domain.LevelMonth:
		return r.Month
	case domain.LevelYear:
		return r.Year
	}
	return nil
}

// GroupByLevel partitions objectives by level, keeping their relative order.
// Objectives with an unknown level are dropped.
func GroupByLevel(objectives []domain.Objective) Rollup {
	r := Rollup{
		Day:   []domain.Objective{},
		Month: []domain.Objective{},
		Year:  []domain.Objective{},
	}
	for _, o := range objectives {
		switch o.Level {
		case domain.LevelDay:
			r.Day = append(r.Day, o)
		case domain.LevelMonth:
			r.Month = append(r.Month, o)
		case domain.LevelYear:
			r.Year = append(r.Year, o)
		}
	}
	return r
}
