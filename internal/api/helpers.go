// Package api implements the HTTP surface: public admit/lookup
// endpoints and the authenticated admin command endpoints, translating
// between gin requests/responses and the dispatcher/lookup services.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qoffice/dispatcher/internal/apperr"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// pagination is the query-string paging convention shared by every
// listing endpoint: page >= 1, limit clamped to [1, maxLimit].
type pagination struct {
	Page  int
	Limit int
}

func parsePagination(c *gin.Context) pagination {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = defaultPage
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return pagination{Page: page, Limit: limit}
}

// paginate writes one page of data as a 200 JSON response, with
// pagination metadata whose totalCount is len(data).
func paginate[T any](c *gin.Context, data []T) {
	p := parsePagination(c)
	total := len(data)
	start := (p.Page - 1) * p.Limit
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	totalPages := (total + p.Limit - 1) / p.Limit
	if totalPages == 0 {
		totalPages = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data[start:end],
		"pagination": gin.H{
			"currentPage": p.Page,
			"totalPages":  totalPages,
			"totalCount":  total,
			"limit":       p.Limit,
		},
	})
}

// ok writes a plain 200 JSON body.
func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// fail translates err through apperr's taxonomy into the HTTP response;
// the single point where a Kind becomes a status code on this surface.
func fail(c *gin.Context, err error) {
	e := apperr.Wrap(err)
	c.JSON(e.HTTPStatus(), gin.H{"code": e.Kind, "message": e.Message, "details": e.Details})
}

// bindJSON binds the request body, failing with Validation on error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.NewValidation(err.Error()))
		return false
	}
	return true
}

// bindRaw unmarshals an already-read request body, for handlers that
// need to inspect the body (e.g. to pick a validation schema) before
// binding it into its typed struct.
func bindRaw(raw []byte, dst any) error {
	return json.Unmarshal(raw, dst)
}
