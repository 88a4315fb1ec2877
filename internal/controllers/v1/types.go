package v1

import (
	"net/url"

	"github.com/tally-ledger/backend/internal/httputil"
	"github.com/tally-ledger/backend/internal/ledger"
	tally_uuid "github.com/tally-ledger/backend/internal/uuid"
	"golang.org/x/exp/slices"
)

// defaultLimit is used for list endpoints when no limit is requested.
const defaultLimit = 50

type URIID struct {
	ID tally_uuid.UUID `uri:"id" binding:"required"` // The ID of the resource
}

type Pagination struct {
	Count  int   `json:"count" example:"25"`  // The amount of records returned in this response
	Offset uint  `json:"offset" example:"50"` // The offset for the first record returned
	Limit  int   `json:"limit" example:"25"`  // The maximum amount of resources to return for this request
	Total  int64 `json:"total" example:"827"` // The total number of resources matching the query
}

// PageQuery is embedded by the query filters of list endpoints.
type PageQuery struct {
	Offset uint `form:"offset"` // The offset of the first resource returned. Defaults to 0.
	Limit  int  `form:"limit"`  // Maximum number of resources to return. Defaults to 50, -1 returns all.
}

// page converts the query into a ledger.Page. The limit defaults to
// defaultLimit unless it is set in the query string.
func (p PageQuery) page(u *url.URL) ledger.Page {
	limit := defaultLimit
	if slices.Contains(httputil.GetURLFields(u, p), "Limit") {
		limit = p.Limit
	}

	return ledger.Page{Offset: int(p.Offset), Limit: limit}
}

func newPagination(count int, total int64, page ledger.Page) *Pagination {
	return &Pagination{
		Count:  count,
		Total:  total,
		Offset: uint(page.Offset),
		Limit:  page.Limit,
	}
}
