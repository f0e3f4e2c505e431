package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// ConciergeID is the pseudo-item for a concierge booking without a costume.
const ConciergeID = "コンシェルジュのみ（きぐるみ不要）"

// Item is a rentable costume. Its ID doubles as display label and storage key.
type Item struct {
	ID string `json:"id"`
}

func (i Item) Concierge() bool {
	return i.ID == ConciergeID
}

// Catalog is the fixed, ordered item inventory.
type Catalog []Item

var defaultItemIDs = []string{
	"きぐるみ1 ※本社保管",
	"きぐるみ2（空気） ※本社保管",
	"きぐるみ3（たてがみに不具合あり） ※札幌支店保管",
	"きぐるみ4 ※旭川保管",
	"きぐるみ5 ※帯広保管",
	"きぐるみ6（空気） ※釧路保管",
	"きぐるみ7 ※函館保管",
	ConciergeID,
}

func DefaultCatalog() Catalog {
	catalog, _ := NewCatalog(defaultItemIDs)
	return catalog
}

// NewCatalog builds a catalog from ids. IDs must be unique and exactly one
// must be the concierge pseudo-item.
func NewCatalog(ids []string) (Catalog, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	seen := map[string]struct{}{}
	concierge := 0
	catalog := make(Catalog, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("catalog item id is empty")
		}
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("duplicate catalog item %q", id)
		}
		seen[id] = struct{}{}
		if id == ConciergeID {
			concierge++
		}
		catalog = append(catalog, Item{ID: id})
	}
	if concierge != 1 {
		return nil, fmt.Errorf("catalog must contain the concierge item %q", ConciergeID)
	}
	return catalog, nil
}

func (c Catalog) Find(id string) (Item, bool) {
	for _, item := range c {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Resolve accepts an exact ID, a 1-based position, or an unambiguous prefix.
func (c Catalog) Resolve(input string) (Item, error) {
	needle := strings.TrimSpace(input)
	if needle == "" {
		return Item{}, fmt.Errorf("item is required")
	}
	if item, ok := c.Find(needle); ok {
		return item, nil
	}
	if n, err := strconv.Atoi(needle); err == nil {
		if n < 1 || n > len(c) {
			return Item{}, fmt.Errorf("item number %d out of range (1-%d)", n, len(c))
		}
		return c[n-1], nil
	}

	var matches []Item
	for _, item := range c {
		if strings.HasPrefix(strings.ToLower(item.ID), strings.ToLower(needle)) {
			matches = append(matches, item)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return Item{}, fmt.Errorf("item %q not found", input)
	default:
		return Item{}, fmt.Errorf("item %q is ambiguous (%d matches)", input, len(matches))
	}
}

type FilterKind int

const (
	FilterKindAll FilterKind = iota
	FilterKindConcierge
	FilterKindItem
)

// Filter selects which items a date is judged against.
type Filter struct {
	Kind FilterKind
	Item string
}

var (
	FilterAll           = Filter{Kind: FilterKindAll}
	FilterConciergeOnly = Filter{Kind: FilterKindConcierge}
)

// FilterItem narrows the calendar to one item. The concierge item maps to FilterConciergeOnly.
func FilterItem(id string) Filter {
	if id == ConciergeID {
		return FilterConciergeOnly
	}
	return Filter{Kind: FilterKindItem, Item: id}
}

func (f Filter) String() string {
	switch f.Kind {
	case FilterKindConcierge:
		return "concierge only"
	case FilterKindItem:
		return f.Item
	default:
		return "all items"
	}
}
