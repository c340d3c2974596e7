package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"weather_balance/internal/models"
	"weather_balance/internal/repository"

	"github.com/gin-gonic/gin"
)

const (
	statusOK          = "ok"
	statusUnavailable = "unavailable"

	healthPingTimeout = 2 * time.Second

	errInvalidUserID = "invalid user id"
	errUserNotFound  = "user not found"
	errListUsers     = "failed to list users"
	errAddUser       = "failed to add user"
	errGetBalance    = "failed to load balance"
)

// AddUserRequest is the payload for creating a user.
type AddUserRequest struct {
	Username string `json:"username" binding:"required" example:"user6"`
	Balance  int64  `json:"balance" example:"11000"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.services.Ping(ctx); err != nil {
		if h.log != nil {
			h.log.Errorw("health_db_ping_failed", "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": statusUnavailable, "db": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "db": "up"})
}

// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array}   models.User
// @Failure      500  {object}  map[string]string
// @Router       /users [get]
func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.services.ListUsers(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListUsers, "list_users_failed", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// @Summary      Add user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body      AddUserRequest  true  "Username and starting balance"
// @Success      201      {object}  map[string]int64  "id"
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /users [post]
func (h *Handler) addUser(c *gin.Context) {
	var input AddUserRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		if h.log != nil {
			h.log.Infow("add_user_bad_request_body", "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	id, err := h.services.AddUser(c.Request.Context(), input.Username, input.Balance)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errAddUser, "add_user_failed", err, "username", input.Username)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// @Summary      User balance
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  map[string]int64  "id, balance"
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /users/{id}/balance [get]
func (h *Handler) getBalance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidUserID})
		return
	}

	balance, err := h.services.GetBalance(c.Request.Context(), id)
	if errors.Is(err, repository.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errUserNotFound})
		return
	}
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetBalance, "get_balance_failed", err, "user_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "balance": balance})
}
