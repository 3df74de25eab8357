package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tenantdesk/tenantdesk/pkg/store"
)

// Every response uses the same envelope: {success, data?, message?}.

func respond(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func respondErr(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// storeErr maps storage failures that reach a handler after validation:
// ErrNotFound keeps its resource-specific message, anything else is internal.
func storeErr(c *gin.Context, err error, notFoundMessage string) {
	if errors.Is(err, store.ErrNotFound) {
		respondErr(c, http.StatusNotFound, notFoundMessage)
		return
	}
	respondErr(c, http.StatusInternalServerError, "Internal error")
}

// bindPartial decodes a partial-update body into out and reports which keys
// the request actually carried. Pointer fields alone cannot tell an explicit
// null (clear the field) apart from an absent key (leave it alone).
func bindPartial(c *gin.Context, out interface{}) (map[string]json.RawMessage, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	keys := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return keys, nil
}

type pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	Limit       int   `json:"limit"`
}

func paginate(total int64, page, limit int) pagination {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return pagination{CurrentPage: page, TotalPages: totalPages, Limit: limit}
}

func parsePage(c *gin.Context) int {
	parsed, err := strconv.Atoi(c.Query("page"))
	if err != nil || parsed < 1 {
		return 1
	}
	return parsed
}

const maxPageLimit = 100

func parseLimit(c *gin.Context, fallback int) int {
	parsed, err := strconv.Atoi(c.Query("limit"))
	if err != nil || parsed <= 0 {
		return fallback
	}
	if parsed > maxPageLimit {
		return maxPageLimit
	}
	return parsed
}
