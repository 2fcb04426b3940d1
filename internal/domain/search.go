package domain

import (
	"math"
	"strings"
	"time"
)

// Pagination defaults and bounds.
const (
	DefaultPage      = 1
	MaxPage          = math.MaxInt32
	DefaultLimit     = 50
	MaxLimit         = 1000
	DefaultSortBy    = "lastModified"
	DefaultSortOrder = SortDesc
)

// SortOrder is the direction of the single-key sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortableFields are the treatment fields a listing may be ordered by.
var SortableFields = map[string]bool{
	"lastModified":  true,
	"creationDate":  true,
	"patient.name":  true,
	"doctor.name":   true,
	"treatmentType": true,
}

// SearchFilters narrows a treatment listing. Zero-valued fields impose no
// constraint, and all supplied fields must match.
type SearchFilters struct {
	Name          string        `json:"name,omitempty"`
	Doctor        string        `json:"doctor,omitempty"`
	TreatmentType TreatmentType `json:"treatmentType,omitempty"`
	DateFrom      *time.Time    `json:"dateFrom,omitempty"`
	DateTo        *time.Time    `json:"dateTo,omitempty"`
}

// IsEmpty reports whether no filter was supplied.
func (f SearchFilters) IsEmpty() bool {
	return f.Name == "" && f.Doctor == "" && f.TreatmentType == "" &&
		f.DateFrom == nil && f.DateTo == nil
}

// Matches is the in-memory equivalent of the store query: case-insensitive
// substring on patient and doctor name, exact treatment type, and an
// inclusive creationDate range.
func (f SearchFilters) Matches(t *Treatment) bool {
	if f.Name != "" && !containsFold(t.Patient.Name, f.Name) {
		return false
	}
	if f.Doctor != "" && !containsFold(t.Doctor.Name, f.Doctor) {
		return false
	}
	if f.TreatmentType != "" && t.TreatmentType != f.TreatmentType {
		return false
	}
	if f.DateFrom != nil && t.CreationDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.CreationDate.After(*f.DateTo) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// PaginationOptions selects one page of a sorted listing.
type PaginationOptions struct {
	Page      int       `json:"page"`
	Limit     int       `json:"limit"`
	SortBy    string    `json:"sortBy"`
	SortOrder SortOrder `json:"sortOrder"`
}

// Normalize replaces out-of-range values with defaults: a non-positive page
// or limit uses the default, page is capped at MaxPage and limit at MaxLimit,
// and an unknown sort key or order falls back to lastModified desc.
func (p PaginationOptions) Normalize() PaginationOptions {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if !SortableFields[p.SortBy] {
		p.SortBy = DefaultSortBy
	}
	if p.SortOrder != SortAsc && p.SortOrder != SortDesc {
		p.SortOrder = DefaultSortOrder
	}
	return p
}

// Skip is the number of matching records before the requested page. Call it
// on normalized options; it is never negative.
func (p PaginationOptions) Skip() int64 {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

// SearchResult is one page of results plus the paging envelope.
type SearchResult[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewSearchResult builds the envelope. totalItems is the count of every
// matching record, not the page size.
func NewSearchResult[T any](data []T, totalItems int64, opts PaginationOptions) *SearchResult[T] {
	if data == nil {
		data = []T{}
	}
	return &SearchResult[T]{
		Data: data,
		Pagination: Pagination{
			CurrentPage:  opts.Page,
			TotalPages:   int(math.Ceil(float64(totalItems) / float64(opts.Limit))),
			TotalItems:   totalItems,
			ItemsPerPage: opts.Limit,
		},
	}
}
