package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage     = 0
	defaultPageSize = 20
	maxPageSize     = 100
)

// parsePaging parses page and page_size query params with defaults.
func parsePaging(c *gin.Context) (page, pageSize int) {
	pageStr := c.DefaultQuery("page", strconv.Itoa(defaultPage))
	sizeStr := c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize))
	page, _ = strconv.Atoi(pageStr)
	pageSize, _ = strconv.Atoi(sizeStr)
	if page < 0 {
		page = defaultPage
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// parseSince parses the optional RFC3339 since query param. A zero time
// means "use the server's default window". The second return is false when
// the value was present but malformed; a response has then been written.
func parseSince(c *gin.Context) (time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return time.Time{}, true
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondBadRequest(c, "since must be an RFC3339 timestamp")
		return time.Time{}, false
	}
	return since, true
}

// respondError sends a JSON error response.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondNotFound sends a 404 with resource not found message.
func respondNotFound(c *gin.Context, resource string) {
	respondError(c, http.StatusNotFound, resource+" not found")
}

// respondBadRequest sends a 400 with message.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

// respondInternalError sends a 500 with message.
func respondInternalError(c *gin.Context, message string) {
	respondError(c, http.StatusInternalServerError, message)
}
