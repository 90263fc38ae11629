package rollup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hourglass/internal/domain"
)

func TestGroupByLevel(t *testing.T) {
	r := GroupByLevel(nil)
	assert.NotNil(t, r.Day)
	assert.NotNil(t, r.Month)
	assert.NotNil(t, r.Year)

	d := day(2024, time.May, 1)
	r = GroupByLevel([]domain.Objective{
		objective("y", domain.LevelYear, d),
		objective("d1", domain.LevelDay, d),
		objective("x", domain.Level("week"), d),
		objective("d2", domain.LevelDay, d),
	})
	assert.Equal(t, []string{"d1", "d2"}, ids(r.Day))
	assert.Empty(t, r.Month)
	assert.Equal(t, []string{"y"}, ids(r.Bucket(domain.LevelYear)))
}

func TestSummarizeScenario(t *testing.T) {
	d := day(2024, time.May, 17)
	var objs []domain.Objective
	for _, id := range []string{"a", "b", "c"} {
		o := objective(id, domain.LevelDay, d, "U")
		o.Progress = 1
		objs = append(objs, o)
	}
	other := objective("d", domain.LevelDay, d, "V")
	other.Progress = 0.4
	objs = append(objs, other)

	s := Summarize(objs, "U")
	assert.Equal(t, Summary{User: Tally{Completed: 3, Count: 3}, Everyone: Tally{Completed: 3, Count: 4}}, s)
}

func TestSummarizeIgnoresScratchedAndPartialProgress(t *testing.T) {
	d := day(2024, time.May, 17)
	scratched := objective("s", domain.LevelDay, d, "U")
	scratched.Progress = 1
	scratched.Scratched = true
	almost := objective("a", domain.LevelDay, d, "U")
	almost.Progress = 0.999

	s := Summarize([]domain.Objective{scratched, almost}, "U")
	assert.Equal(t, Tally{Completed: 0, Count: 1}, s.User)
	assert.Equal(t, Tally{Completed: 0, Count: 1}, s.Everyone)

	assert.Equal(t, Summary{}, Summarize(nil, "U"))
}
