package response

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPerPage = 12
	MaxPerPage     = 100
)

// Meta describes one page of a paginated listing.
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// Page is a requested page window.
type Page struct {
	Number  int
	PerPage int
}

// Offset returns the row offset of the page.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Meta builds the response meta for a total row count. last_page is at least 1.
func (p Page) Meta(total int) Meta {
	last := (total + p.PerPage - 1) / p.PerPage
	if last < 1 {
		last = 1
	}
	return Meta{CurrentPage: p.Number, LastPage: last, PerPage: p.PerPage, Total: total}
}

// ParsePage reads ?page= and ?per_page=, clamping to sane bounds.
func ParsePage(c *gin.Context) Page {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.Query("per_page"))
	if err != nil || perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Page{Number: page, PerPage: perPage}
}
