package handler

import (
	"errors"
	"net/http"

	"github.com/emlakbet/housegame/internal/api/middleware"
	"github.com/emlakbet/housegame/internal/domain"
	"github.com/emlakbet/housegame/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OracleHandler serves the oracle-only write endpoints. Both routes sit
// behind OracleAuthMiddleware; the ledger re-checks the caller identity
// anyway, so a misrouted request still cannot write.
type OracleHandler struct {
	ledger *service.LedgerService
}

// NewOracleHandler creates an OracleHandler.
func NewOracleHandler(ledger *service.LedgerService) *OracleHandler {
	return &OracleHandler{ledger: ledger}
}

// InitializeSlot godoc
// POST /api/oracle/initialize [oracle token]
// Body: {"game_id":12,"listing_id":"0x00…","displayed_price":"517500"}
//
// Replay-safe: initializing a slot that already left pending returns 409
// with no side effects.
func (h *OracleHandler) InitializeSlot(c *gin.Context) {
	caller := middleware.GetOracleID(c)

	var body struct {
		GameID         int64  `json:"game_id"         binding:"required"`
		ListingID      string `json:"listing_id"      binding:"required"`
		DisplayedPrice string `json:"displayed_price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	displayed, err := decimal.NewFromString(body.DisplayedPrice)
	if err != nil || !displayed.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "displayed_price must be a positive decimal string")
		return
	}

	err = h.ledger.InitializeSlot(c.Request.Context(), caller, body.GameID, body.ListingID, displayed)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", err.Error())
		case errors.Is(err, domain.ErrSlotNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "game not found")
		case errors.Is(err, domain.ErrInvalidState):
			respondError(c, http.StatusConflict, "ERR_INVALID_STATE", "slot is not pending")
		case errors.Is(err, domain.ErrInvalidListingID):
			respondError(c, http.StatusBadRequest, "ERR_INVALID_LISTING_ID", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not initialize slot")
		}
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"game_id": body.GameID, "status": domain.SlotInitialized})
}

// SettleSlot godoc
// POST /api/oracle/settle [oracle token]
// Body: {"game_id":12,"actual_price":"450000"}
func (h *OracleHandler) SettleSlot(c *gin.Context) {
	caller := middleware.GetOracleID(c)

	var body struct {
		GameID      int64  `json:"game_id"      binding:"required"`
		ActualPrice string `json:"actual_price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	actual, err := decimal.NewFromString(body.ActualPrice)
	if err != nil || !actual.IsPositive() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PRICE", "actual_price must be a positive decimal string")
		return
	}

	slot, err := h.ledger.SettleSlot(c.Request.Context(), caller, body.GameID, actual)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", err.Error())
		case errors.Is(err, domain.ErrSlotNotFound):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "game not found")
		case errors.Is(err, domain.ErrInvalidState):
			respondError(c, http.StatusConflict, "ERR_INVALID_STATE", "slot is not played")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not settle slot")
		}
		return
	}
	respondSuccess(c, http.StatusOK, slot)
}
