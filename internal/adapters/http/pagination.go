package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Pagination contains page-based pagination info. Page is 1-based.
type Pagination struct {
	Page        int `json:"page"`
	HitsPerPage int `json:"hitsPerPage"`
	NbHits      int `json:"nbHits"`
	NbPages     int `json:"nbPages"`
}

// NewPagination derives the page count.
func NewPagination(page, hitsPerPage, nbHits int) Pagination {
	p := Pagination{Page: page, HitsPerPage: hitsPerPage, NbHits: nbHits}
	if hitsPerPage > 0 {
		p.NbPages = (nbHits + hitsPerPage - 1) / hitsPerPage
	}
	return p
}

// SetLinkHeaders adds RFC 8288 Link headers for paginated responses. Every
// other query parameter of the request is preserved.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	base := c.Path()
	params := url.Values{}
	for k, v := range c.Queries() {
		params.Set(k, v)
	}
	link := func(page int, rel string) string {
		params.Set("page", fmt.Sprint(page))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, base, params.Encode(), rel)
	}

	last := p.NbPages
	if last < 1 {
		last = 1
	}
	links := []string{link(1, "first")}
	if p.Page > 1 {
		links = append(links, link(min(p.Page-1, last), "prev"))
	}
	if p.Page < last {
		links = append(links, link(p.Page+1, "next"))
	}
	links = append(links, link(last, "last"))

	c.Set("Link", strings.Join(links, ", "))
}
