package outage

import (
	"fmt"
	"time"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// NewPage applies the default size, the size cap and a minimum page of 1.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPerPage
	}
	if size > MaxPerPage {
		size = MaxPerPage
	}
	return Page{Number: number, Size: size}
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// PageResult is one page of records plus the total matching count.
// AsOf is the instant time-dependent filters were evaluated at; zero when
// none apply.
type PageResult[T any] struct {
	Items []T
	Total int
	Page  Page
	AsOf  time.Time
}

// LastPage is the number of the final page, at least 1.
func (r PageResult[T]) LastPage() int {
	if r.Total == 0 || r.Page.Size == 0 {
		return 1
	}
	return (r.Total + r.Page.Size - 1) / r.Page.Size
}

// Sort orders a listing by a whitelisted column.
type Sort struct {
	Field      string
	Descending bool
}

// Sortable columns per resource. Anything else is rejected before it can
// reach SQL.
var (
	LocationSortFields = map[string]bool{
		"id": true, "name": true, "address": true, "locality": true, "city": true,
		"country": true, "latitude": true, "longitude": true,
		"created_at": true, "updated_at": true,
	}
	OutageSortFields = map[string]bool{
		"id": true, "start_time": true, "end_time": true, "location_id": true,
		"weather_condition": true, "temperature": true, "wind_speed": true,
		"precipitation": true, "humidity": true, "pressure": true, "cloud": true,
		"day_of_week": true, "is_holiday": true, "created_at": true, "updated_at": true,
	}
)

// DefaultLocationSort is name ascending.
var DefaultLocationSort = Sort{Field: "name"}

// DefaultOutageSort is start_time descending.
var DefaultOutageSort = Sort{Field: "start_time", Descending: true}

func validateSort(s Sort, allowed map[string]bool) error {
	if !allowed[s.Field] {
		return fieldError("sort_by", fmt.Sprintf("The sort field %q is not supported.", s.Field))
	}
	return nil
}

// LocationQuery is a fully resolved location listing request.
type LocationQuery struct {
	UserID     int64
	Predicates []LocationPredicate
	Sort       Sort
	Page       Page
}

// OutageQuery is a fully resolved outage listing request. Now anchors
// duration computations for ongoing outages.
type OutageQuery struct {
	UserID     int64
	Predicates []OutagePredicate
	Sort       Sort
	Page       Page
	Now        time.Time
}
