package investments

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/dto"
	"github.com/GlebRadaev/solyield/internal/handlers/httperr"
	"github.com/GlebRadaev/solyield/pkg/auth"
	"github.com/GlebRadaev/solyield/pkg/utils"
	"github.com/GlebRadaev/solyield/pkg/validate"
)

//go:generate mockgen -source=investments.go -destination=mock_investments.go -package=investments

type Service interface {
	Plans() []domain.Plan
	List(ctx context.Context, wallet string) ([]domain.Investment, error)
	Get(ctx context.Context, wallet, id string) (*domain.Investment, error)
	Create(ctx context.Context, wallet string, userID *string, planName string, amount decimal.Decimal, c domain.Currency) (*domain.Investment, error)
	Cancel(ctx context.Context, wallet, id string) (*domain.Investment, error)
}

type InvestmentHandler struct {
	investmentService Service
}

func New(investmentService Service) *InvestmentHandler {
	return &InvestmentHandler{
		investmentService: investmentService,
	}
}

// Plans godoc
//
//	@Summary	Available investment plans
//	@Tags		Investments
//	@Produce	json
//	@Success	200	{array}	domain.Plan
//	@Router		/investments/plans [get]
func (h *InvestmentHandler) Plans(w http.ResponseWriter, _ *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, h.investmentService.Plans())
}

// List godoc
//
//	@Summary	Investments of the authenticated wallet
//	@Tags		Investments
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}		dto.InvestmentDTO
//	@Failure	401	{object}	utils.Response	"User not authorized"
//	@Failure	500	{object}	utils.Response	"Internal server error"
//	@Router		/investments [get]
func (h *InvestmentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	list, err := h.investmentService.List(r.Context(), identity.Wallet)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	response := make([]dto.InvestmentDTO, len(list))
	for i := range list {
		response[i] = dto.NewInvestmentDTO(&list[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// Get godoc
//
//	@Summary	One investment
//	@Tags		Investments
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		string	true	"Investment id"
//	@Success	200	{object}	dto.InvestmentDTO
//	@Failure	401	{object}	utils.Response	"User not authorized"
//	@Failure	404	{object}	utils.Response	"Investment not found"
//	@Failure	500	{object}	utils.Response	"Internal server error"
//	@Router		/investments/{id} [get]
func (h *InvestmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, ok := httperr.PathID(w, r, "investment")
	if !ok {
		return
	}
	inv, err := h.investmentService.Get(r.Context(), identity.Wallet, id)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewInvestmentDTO(inv))
}

// Create godoc
//
//	@Summary		Open an investment
//	@Description	Locks the amount from the available balance and starts daily accrual.
//	@Tags			Investments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CreateInvestmentRequestDTO	true	"Plan and amount"
//	@Success		201		{object}	dto.InvestmentDTO
//	@Failure		400		{object}	utils.Response	"Invalid plan, amount or insufficient balance"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/investments [post]
func (h *InvestmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.CreateInvestmentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httperr.BadRequest(w, err.Error())
		return
	}
	c, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	userID := identity.UserID
	inv, err := h.investmentService.Create(r.Context(), identity.Wallet, &userID, req.PlanName, req.Amount, c)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewInvestmentDTO(inv))
}

// Cancel godoc
//
//	@Summary		Cancel an active investment
//	@Description	Returns the principal at once. Profit already credited is kept.
//	@Tags			Investments
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Investment id"
//	@Success		200	{object}	dto.InvestmentDTO
//	@Failure		400	{object}	utils.Response	"Investment is not active"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Investment not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/investments/{id}/cancel [post]
func (h *InvestmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, ok := httperr.PathID(w, r, "investment")
	if !ok {
		return
	}
	inv, err := h.investmentService.Cancel(r.Context(), identity.Wallet, id)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewInvestmentDTO(inv))
}
