package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"weather_balance/internal/models"
	"weather_balance/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"

	errInvalidBodyPref = "invalid body: "
	errQueueFull       = "update queue is full"
	errNotAccepting    = "update dispatcher is stopped"
	errEnqueue         = "failed to enqueue update"
)

var (
	errMissingUserID = errors.New("userId is required")
	errCityNotScalar = errors.New("city must be a string, number or boolean")
)

// updateBalanceBody keeps userId untyped; it is coerced by coerceUserID.
type updateBalanceBody struct {
	UserID any `json:"userId"`
	City   any `json:"city"`
}

// UpdateBalanceRequest is an exported model for Swagger docs of the update_balance payload.
type UpdateBalanceRequest struct {
	// User id. Integers, floats (truncated), numeric strings and booleans are accepted.
	UserID int64 `json:"userId" example:"1"`
	// City passed to the weather provider
	City string `json:"city" example:"Moscow"`
}

// @Summary      Queue a weather-driven balance update
// @Description  Adds the current temperature of the city to the user's balance unless balance - temperature would be negative. The reply only confirms queuing; see /updates/{id} for the outcome.
// @Tags         balance
// @Accept       json
// @Produce      json
// @Param        request  body      UpdateBalanceRequest  true  "User and city"
// @Success      200      {object}  map[string]string  "status, task_id"
// @Failure      400      {object}  map[string]string
// @Failure      503      {object}  map[string]string
// @Router       /update_balance [post]
func (h *Handler) updateBalance(c *gin.Context) {
	req, err := parseUpdateBalance(c)
	if err != nil {
		if h.log != nil {
			h.log.Infow("update_balance_bad_request", "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	taskID, err := h.services.Enqueue(req)
	switch {
	case errors.Is(err, service.ErrQueueFull):
		if h.log != nil {
			h.log.Warnw("update_balance_rejected", "user_id", req.UserID, "city", req.City, "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errQueueFull})
		return
	case errors.Is(err, service.ErrDispatcherClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNotAccepting})
		return
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, errEnqueue, "update_balance_enqueue_failed", err)
		return
	}

	if h.log != nil {
		h.log.Debugw("update_balance_queued", "task_id", taskID, "user_id", req.UserID, "city", req.City)
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "task_id": taskID})
}

func parseUpdateBalance(c *gin.Context) (models.UpdateRequest, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return models.UpdateRequest{}, err
	}

	var body updateBalanceBody
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return models.UpdateRequest{}, err
	}

	userID, err := coerceUserID(body.UserID)
	if err != nil {
		return models.UpdateRequest{}, err
	}

	city, err := cityText(body.City)
	if err != nil {
		return models.UpdateRequest{}, err
	}
	return models.UpdateRequest{UserID: userID, City: city}, nil
}

// cityText passes city through unvalidated. Numbers and booleans are sent to
// the provider as their JSON text; a missing city is empty.
func cityText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number, bool:
		return fmt.Sprint(t), nil
	default:
		return "", errCityNotScalar
	}
}

// coerceUserID accepts a JSON integer, a float (truncated), a numeric string
// (trimmed, integer or float text) or a boolean (true=1, false=0).
// Float text in strings ("1.5", "1e3") is accepted on purpose, wider than a
// plain integer parse; it is truncated like a JSON float.
func coerceUserID(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, errMissingUserID
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return numericID(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("userId %q is not a number", t)
		}
		return numericID(s)
	default:
		return 0, fmt.Errorf("userId must be a number, got %T", v)
	}
}

func numericID(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("userId %q is not a number", s)
	}
	f = math.Trunc(f)
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("userId %q is out of range", s)
	}
	return int64(f), nil
}
