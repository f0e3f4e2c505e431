package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func renderFixture(t *testing.T) (*Engine, Catalog) {
	t.Helper()
	catalog := DefaultCatalog()
	engine := NewEngine(nil, catalog, zaptest.NewLogger(t), WithClock(clock))
	m := allBooked(catalog, "2025-05-20")
	m["2025-05-21"] = map[string]Status{catalog[0].ID: Booked}
	engine.Replace(m)
	return engine, catalog
}

func TestRenderMonthIdempotent(t *testing.T) {
	engine, _ := renderFixture(t)
	today := time.Date(2025, time.May, 2, 8, 0, 0, 0, time.UTC)
	w := DefaultWindow()

	first := RenderMonth(2025, time.May, today, w, engine, FilterAll)
	second := RenderMonth(2025, time.May, today, w, engine, FilterAll)
	assert.Equal(t, first, second)
	assert.True(t, first == second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderMonthLayout(t *testing.T) {
	engine, catalog := renderFixture(t)
	today := time.Date(2025, time.May, 2, 8, 0, 0, 0, time.UTC)
	grid := RenderMonth(2025, time.May, today, DefaultWindow(), engine, FilterAll)

	// 1 May 2025 is a Thursday.
	for col := 0; col < 4; col++ {
		assert.Equal(t, LeadingBlank, grid.Weeks[0][col].Kind)
	}
	assert.Equal(t, 1, grid.Weeks[0][4].Day)
	assert.Equal(t, "2025-05-01", grid.Weeks[0][4].Date)
	assert.Equal(t, 31, grid.Weeks[4][6].Day)
	for col := 0; col < 7; col++ {
		assert.Equal(t, TrailingBlank, grid.Weeks[5][col].Kind)
	}

	todayCell := grid.Weeks[0][5]
	assert.Equal(t, 2, todayCell.Day)
	assert.True(t, todayCell.Today)
	assert.Equal(t, Unavailable, todayCell.Kind)

	// Lead time of 15 days opens the window on the 17th.
	assert.Equal(t, Unavailable, grid.Weeks[2][5].Kind, "16th")
	assert.Equal(t, AvailableCell, grid.Weeks[2][6].Kind, "17th")
	assert.Equal(t, BookedCell, grid.Weeks[3][2].Kind, "20th fully booked")
	assert.Equal(t, AvailableCell, grid.Weeks[3][3].Kind, "21st partly booked")

	counts := grid.Counts()
	assert.Equal(t, 16, counts[Unavailable])
	assert.Equal(t, 1, counts[BookedCell])
	assert.Equal(t, 14, counts[AvailableCell])
	assert.Len(t, grid.Selectable(), 14)

	byItem := RenderMonth(2025, time.May, today, DefaultWindow(), engine, FilterItem(catalog[0].ID))
	assert.Equal(t, BookedCell, byItem.Weeks[3][3].Kind)
}

func TestRenderMonthStartingSunday(t *testing.T) {
	engine, _ := renderFixture(t)
	// 1 June 2025 is a Sunday.
	grid := RenderMonth(2025, time.June, fixedNow, DefaultWindow(), engine, FilterAll)
	assert.Equal(t, 1, grid.Weeks[0][0].Day)
	assert.Equal(t, 30, grid.Weeks[4][1].Day)
	assert.Equal(t, TrailingBlank, grid.Weeks[4][2].Kind)
}

func TestInitialMonth(t *testing.T) {
	year, month := InitialMonth(time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC), DefaultWindow())
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.June, month)

	year, month = InitialMonth(time.Date(2025, time.December, 28, 0, 0, 0, 0, time.UTC), DefaultWindow())
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.January, month)
}
