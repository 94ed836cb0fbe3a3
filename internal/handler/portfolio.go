package handler

import (
	"net/http"

	"github.com/efreitasn/replaytrader/internal/service"
)

// PortfolioHandler handles GET /portfolio.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

// Get handles GET /portfolio.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, buildPortfolioResponse(h.portfolioSvc.Summary()))
}
