package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultUpdatesLimit = 50
	maxUpdatesLimit     = 1000

	errInvalidLimit   = "invalid 'limit'; use an integer between 1 and 1000"
	errUpdateNotFound = "update not found"
)

// parseLimit reads ?limit=N, falling back to def when absent.
func parseLimit(c *gin.Context, def int) (int, bool) {
	s := c.Query("limit")
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxUpdatesLimit {
		return 0, false
	}
	return n, true
}

// @Summary      Recent balance updates
// @Description  Newest first. Only the most recent results are kept in memory.
// @Tags         updates
// @Produce      json
// @Param        limit  query     int  false  "Max results (1..1000)"  default(50)
// @Success      200    {object}  map[string]interface{}  "count, updates"
// @Failure      400    {object}  map[string]string
// @Router       /updates [get]
func (h *Handler) listUpdates(c *gin.Context) {
	limit, ok := parseLimit(c, defaultUpdatesLimit)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidLimit})
		return
	}
	updates := h.services.Recent(limit)
	c.JSON(http.StatusOK, gin.H{"count": len(updates), "updates": updates})
}

// @Summary      Balance update status
// @Tags         updates
// @Produce      json
// @Param        id   path      string  true  "Task id returned by /update_balance"
// @Success      200  {object}  models.UpdateResult
// @Failure      404  {object}  map[string]string
// @Router       /updates/{id} [get]
func (h *Handler) getUpdate(c *gin.Context) {
	res, ok := h.services.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errUpdateNotFound})
		return
	}
	c.JSON(http.StatusOK, res)
}
