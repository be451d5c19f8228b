package handler

import (
	"net/http"
	"time"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/evetabi/predictarena/internal/repository"
	"github.com/evetabi/predictarena/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TournamentHandler serves the tournament lifecycle.
type TournamentHandler struct {
	tournamentSvc *service.TournamentService
}

// NewTournamentHandler creates a TournamentHandler.
func NewTournamentHandler(tournamentSvc *service.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentSvc: tournamentSvc}
}

// Create godoc
// POST /api/tournaments
func (h *TournamentHandler) Create(c *gin.Context) {
	var body struct {
		Name            string          `json:"name"             binding:"required,min=5,max=200"`
		Description     string          `json:"description"      binding:"required,min=20,max=2000"`
		MarketIDs       []string        `json:"market_ids"       binding:"required,min=1"`
		EntryFee        decimal.Decimal `json:"entry_fee"`
		PrizePool       decimal.Decimal `json:"prize_pool"`
		StartTime       time.Time       `json:"start_time"`
		EndTime         time.Time       `json:"end_time"`
		MaxParticipants int             `json:"max_participants" binding:"required"`
		CreatorAddress  string          `json:"creator_address"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	creator, ok := callerAddress(c, body.CreatorAddress)
	if !ok {
		return
	}

	t, err := h.tournamentSvc.CreateTournament(c.Request.Context(), domain.CreateTournamentParams{
		Name:            body.Name,
		Description:     body.Description,
		MarketIDs:       body.MarketIDs,
		EntryFee:        body.EntryFee,
		PrizePool:       body.PrizePool,
		StartTime:       body.StartTime,
		EndTime:         body.EndTime,
		MaxParticipants: body.MaxParticipants,
		CreatorAddress:  creator,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, t)
}

// List godoc
// GET /api/tournaments?status=pending&limit=20
func (h *TournamentHandler) List(c *gin.Context) {
	limit := parseLimit(c)
	list, err := h.tournamentSvc.ListTournaments(c.Request.Context(), repository.TournamentFilter{
		Status: domain.TournamentStatus(c.Query("status")),
		Limit:  limit,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, list, len(list), limit)
}

// GetByID godoc
// GET /api/tournaments/:id
func (h *TournamentHandler) GetByID(c *gin.Context) {
	t, err := h.tournamentSvc.GetTournament(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, t)
}

// actor binds an optional {"<field>": "0x.."} body and resolves the caller.
func actor(c *gin.Context, field string) (string, bool) {
	body := map[string]string{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidation(c, err)
			return "", false
		}
	}
	return callerAddress(c, body[field])
}

// Join godoc
// POST /api/tournaments/:id/join
func (h *TournamentHandler) Join(c *gin.Context) {
	addr, ok := actor(c, "participant_address")
	if !ok {
		return
	}
	t, err := h.tournamentSvc.JoinTournament(c.Request.Context(), c.Param("id"), addr)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, t)
}

// Start godoc
// POST /api/tournaments/:id/start
func (h *TournamentHandler) Start(c *gin.Context) {
	caller, ok := actor(c, "caller_address")
	if !ok {
		return
	}
	t, err := h.tournamentSvc.StartTournament(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, t)
}

// Predict godoc
// POST /api/tournaments/:id/predictions
func (h *TournamentHandler) Predict(c *gin.Context) {
	var body struct {
		ParticipantAddress string            `json:"participant_address"`
		Predictions        map[string]string `json:"predictions" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondValidation(c, err)
		return
	}
	addr, ok := callerAddress(c, body.ParticipantAddress)
	if !ok {
		return
	}

	t, err := h.tournamentSvc.SubmitPrediction(c.Request.Context(), c.Param("id"), addr, body.Predictions)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"tournament_id": t.ID,
		"participant":   addr,
		"predictions":   t.Predictions[addr],
	})
}

// Complete godoc
// POST /api/tournaments/:id/complete
func (h *TournamentHandler) Complete(c *gin.Context) {
	caller, ok := actor(c, "caller_address")
	if !ok {
		return
	}
	result, err := h.tournamentSvc.CompleteTournament(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// Leaderboard godoc
// GET /api/tournaments/:id/leaderboard
func (h *TournamentHandler) Leaderboard(c *gin.Context) {
	standings, err := h.tournamentSvc.Leaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, standings, len(standings), len(standings))
}
