package rollup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hourglass/internal/domain"
)

func TestDateQueryLevel(t *testing.T) {
	cases := []struct {
		q    DateQuery
		want domain.Level
	}{
		{DateQuery{Year: 2024}, domain.LevelYear},
		{DateQuery{Year: 2024, Month: 3}, domain.LevelMonth},
		{DateQuery{Year: 2024, Month: 3, Day: 5}, domain.LevelDay},
		{DateQuery{Year: 2024, Day: 5}, domain.LevelYear},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.q.Level(), "%+v", tc.q)
	}
}

func TestResolveWindowDefaultsFromNow(t *testing.T) {
	now := time.Date(2024, time.May, 17, 10, 30, 0, 0, time.UTC)

	w, err := ResolveWindow(DateQuery{Year: 2023}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC), w.Anchor)
	assert.Equal(t, time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC), w.Day.Start)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), w.Month.Start)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), w.Year.Start)
	assert.Equal(t, w.Month, w.Period(domain.LevelMonth))

	w, err = ResolveWindow(DateQuery{Year: 2024, Month: 2, Day: 29}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), w.Anchor)
}

func TestResolveWindowClampsDefaultedDay(t *testing.T) {
	now := time.Date(2024, time.January, 31, 8, 0, 0, 0, time.UTC)
	w, err := ResolveWindow(DateQuery{Year: 2023, Month: 2}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), w.Anchor)
}

func TestResolveWindowUsesUTCNow(t *testing.T) {
	// 01:00 on June 1 at +3 is still May 31 in UTC.
	now := time.Date(2024, time.June, 1, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	w, err := ResolveWindow(DateQuery{Year: 2024}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), w.Anchor)
}

func TestResolveWindowInvalidDates(t *testing.T) {
	now := time.Date(2024, time.May, 17, 0, 0, 0, 0, time.UTC)
	for _, q := range []DateQuery{
		{Year: 2024, Month: 2, Day: 30},
		{Year: 2023, Month: 2, Day: 29},
		{Year: 2024, Month: 13},
		{Year: 2024, Month: -1},
		{Year: 2024, Month: 4, Day: 31},
		{Year: 0},
		{Year: 10000},
	} {
		_, err := ResolveWindow(q, now)
		require.Error(t, err, "%+v", q)
		assert.True(t, errors.Is(err, domain.ErrInvalidDate))
		var ide *domain.InvalidDateError
		require.True(t, errors.As(err, &ide))
		assert.Equal(t, q.Year, ide.Year)
	}
}
