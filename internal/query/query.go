// Package query turns untrusted listing parameters into bounded filter, sort
// and pagination values shared by every store backend.
package query

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize      = 12
	AdminPageSize        = 20
	MaxPageSize          = 100
	DefaultOrderPageSize = 20
	MaxOrderPageSize     = 50
	// MaxPage keeps Offset far from int overflow for any allowed page size.
	MaxPage = 1_000_000

	maxSearchLen = 100
)

type Sort struct {
	Field string
	Desc  bool
}

var DefaultSort = Sort{Field: "createdAt", Desc: true}

// ParseSort reads "[-]field". Field names are not validated here; each store
// decides how to resolve them.
func ParseSort(s string) Sort {
	s = strings.TrimSpace(s)
	desc := strings.HasPrefix(s, "-")
	field := strings.TrimPrefix(s, "-")
	if field == "" {
		return DefaultSort
	}
	return Sort{Field: field, Desc: desc}
}

func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

type Page struct {
	Number int
	Size   int
}

func ParsePage(page, size string, defSize, maxSize int) Page {
	p := Page{Number: 1, Size: defSize}
	if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && n > 1 {
		p.Number = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(size)); err == nil && n >= 1 {
		p.Size = min(n, maxSize)
	}
	p.Number = min(p.Number, MaxPage)
	return p
}

// Offset never goes negative, whatever the page number.
func (p Page) Offset() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	return (min(p.Number, MaxPage) - 1) * p.Size
}

type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
}

func NewPagination(p Page, total int) Pagination {
	pages := 0
	if total > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return Pagination{Page: p.Number, TotalPages: pages, PageSize: p.Size, TotalItems: total}
}

// Products is the per-request catalog query. Zero values impose no
// constraint.
type Products struct {
	Search   string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     Sort
	Page     Page
}

// ParseProducts builds a catalog query from raw query-string values.
// Malformed numbers are treated as absent.
func ParseProducts(v map[string]string, defSize int) Products {
	return Products{
		Search:   Search(v["search"]),
		Category: strings.TrimSpace(v["category"]),
		MinPrice: parseDecimal(v["minPrice"]),
		MaxPrice: parseDecimal(v["maxPrice"]),
		Sort:     ParseSort(v["sort"]),
		Page:     ParsePage(v["page"], v["pageSize"], defSize, MaxPageSize),
	}
}

// Search normalizes free text: trimmed and capped. Escaping is the store's
// job since LIKE and regex need different treatment.
func Search(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxSearchLen {
		s = string(r[:maxSearchLen])
	}
	return s
}

func parseDecimal(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

type Orders struct {
	Status string
	UserID string
	Sort   Sort
	Page   Page
}

func ParseOrders(v map[string]string) Orders {
	return Orders{
		Status: strings.TrimSpace(v["status"]),
		Sort:   ParseSort(v["sort"]),
		Page:   ParsePage(v["page"], v["pageSize"], DefaultOrderPageSize, MaxOrderPageSize),
	}
}
