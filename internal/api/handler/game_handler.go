package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GameHandler serves the player-facing slot endpoints.
type GameHandler struct {
	ledger *service.LedgerService
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(ledger *service.LedgerService) *GameHandler {
	return &GameHandler{ledger: ledger}
}

// RequestBatch godoc
// POST /api/games/batch
// Body: {"player":"uuid","size":5}
func (h *GameHandler) RequestBatch(c *gin.Context) {
	var body struct {
		Player string `json:"player" binding:"required"`
		Size   int64  `json:"size"   binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	player, err := uuid.Parse(body.Player)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PLAYER", "invalid player id format")
		return
	}

	batch, err := h.ledger.RequestBatch(c.Request.Context(), player, body.Size)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSize) {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_SIZE", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create batch")
		return
	}
	respondSuccess(c, http.StatusCreated, batch)
}

// GetGame godoc
// GET /api/games/:id
//
// The actual price and result are redacted until the slot settles.
func (h *GameHandler) GetGame(c *gin.Context) {
	gameID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || gameID < 1 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_GAME_ID", "invalid game id")
		return
	}

	slot, err := h.ledger.GetSlot(c.Request.Context(), gameID)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "game not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch game")
		return
	}
	respondSuccess(c, http.StatusOK, slot.PublicView())
}

// ListGames godoc
// GET /api/games?player=uuid&page=1&limit=20
func (h *GameHandler) ListGames(c *gin.Context) {
	player, err := uuid.Parse(c.Query("player"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PLAYER", "player query parameter required")
		return
	}
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	slots, err := h.ledger.ListPlayerSlots(c.Request.Context(), player, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch games")
		return
	}

	views := make([]domain.GameSlot, 0, len(slots))
	for _, s := range slots {
		views = append(views, s.PublicView())
	}
	respondList(c, views, len(views), page, limit)
}

// PlayGame godoc
// POST /api/games/:id/play
// Body: {"player":"uuid","guess":"OVER"}
func (h *GameHandler) PlayGame(c *gin.Context) {
	gameID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || gameID < 1 {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_GAME_ID", "invalid game id")
		return
	}

	var body struct {
		Player string `json:"player" binding:"required"`
		Guess  string `json:"guess"  binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	player, err := uuid.Parse(body.Player)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PLAYER", "invalid player id format")
		return
	}

	slot, err := h.ledger.PlaySlot(c.Request.Context(), player, gameID, domain.Guess(body.Guess))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidGuess):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_GUESS", err.Error())
		case errors.Is(err, domain.ErrNotSlotOwner):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "this game does not belong to you")
		case errors.Is(err, domain.ErrSlotNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "game not found")
		case errors.Is(err, domain.ErrInvalidState):
			respondError(c, http.StatusConflict, "ERR_INVALID_STATE", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not play game")
		}
		return
	}
	respondSuccess(c, http.StatusOK, slot.PublicView())
}
