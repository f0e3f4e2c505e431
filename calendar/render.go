package calendar

import "time"

const (
	gridRows = 6
	gridCols = 7
)

type CellKind int

const (
	LeadingBlank CellKind = iota
	TrailingBlank
	Unavailable
	BookedCell
	AvailableCell
)

func (k CellKind) String() string {
	switch k {
	case LeadingBlank:
		return "leading_blank"
	case TrailingBlank:
		return "trailing_blank"
	case Unavailable:
		return "unavailable"
	case BookedCell:
		return "booked"
	case AvailableCell:
		return "available"
	default:
		return "unknown"
	}
}

func (k CellKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Cell struct {
	Kind  CellKind `json:"kind"`
	Day   int      `json:"day,omitempty"`
	Date  string   `json:"date,omitempty"`
	Today bool     `json:"today,omitempty"`
}

// Interactive reports whether the cell can be selected.
func (c Cell) Interactive() bool {
	return c.Kind == AvailableCell
}

// Grid is one month laid out in six Sunday-first weeks.
type Grid struct {
	Year  int                      `json:"year"`
	Month time.Month               `json:"month"`
	Weeks [gridRows][gridCols]Cell `json:"weeks"`
}

// Checker answers per-date availability.
type Checker interface {
	IsAvailable(date string, f Filter) bool
}

// RenderMonth lays out month with cell states derived from the window and
// checker. It has no side effects; equal inputs give equal grids.
func RenderMonth(year int, month time.Month, today time.Time, w LeadTimeWindow, checker Checker, f Filter) Grid {
	grid := Grid{Year: year, Month: month}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	offset := int(first.Weekday())
	today = Day(today)

	for i := 0; i < gridRows*gridCols; i++ {
		row, col := i/gridCols, i%gridCols
		day := i - offset + 1
		switch {
		case day < 1:
			grid.Weeks[row][col] = Cell{Kind: LeadingBlank}
		case day > daysInMonth:
			grid.Weeks[row][col] = Cell{Kind: TrailingBlank}
		default:
			date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			cell := Cell{
				Day:   day,
				Date:  FormatDate(date),
				Today: date.Equal(today),
			}
			switch {
			case !IsWithinBookableWindow(date, today, w):
				cell.Kind = Unavailable
			case !checker.IsAvailable(cell.Date, f):
				cell.Kind = BookedCell
			default:
				cell.Kind = AvailableCell
			}
			grid.Weeks[row][col] = cell
		}
	}
	return grid
}

// Selectable lists the dates of available cells in order.
func (g Grid) Selectable() []string {
	dates := []string{}
	for _, week := range g.Weeks {
		for _, cell := range week {
			if cell.Interactive() {
				dates = append(dates, cell.Date)
			}
		}
	}
	return dates
}

// Counts tallies in-month cells by kind.
func (g Grid) Counts() map[CellKind]int {
	counts := map[CellKind]int{}
	for _, week := range g.Weeks {
		for _, cell := range week {
			if cell.Kind == LeadingBlank || cell.Kind == TrailingBlank {
				continue
			}
			counts[cell.Kind]++
		}
	}
	return counts
}

// InitialMonth is the month containing the first bookable day.
func InitialMonth(today time.Time, w LeadTimeWindow) (int, time.Month) {
	first := w.First(today)
	return first.Year(), first.Month()
}
