package balance

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/dto"
	"github.com/GlebRadaev/solyield/internal/handlers/httperr"
	"github.com/GlebRadaev/solyield/pkg/auth"
	"github.com/GlebRadaev/solyield/pkg/utils"
	"github.com/GlebRadaev/solyield/pkg/validate"
)

//go:generate mockgen -source=balance.go -destination=mock_balance.go -package=balance

const maxTransactionsLimit = 500

type Service interface {
	GetBalance(ctx context.Context, wallet string) (*domain.Balance, error)
	GetTransactions(ctx context.Context, wallet string, limit int) ([]domain.Transaction, error)
	Withdraw(ctx context.Context, wallet string, amount decimal.Decimal, c domain.Currency, destination string) (*domain.Transaction, error)
	CompleteWithdrawal(ctx context.Context, id, payoutSignature string) (*domain.Transaction, error)
	FailWithdrawal(ctx context.Context, id, reason string) (*domain.Transaction, error)
}

type BalanceHandler struct {
	balanceService Service
}

func New(balanceService Service) *BalanceHandler {
	return &BalanceHandler{
		balanceService: balanceService,
	}
}

// GetBalance godoc
//
//	@Summary		Get ledger balance
//	@Description	Available and locked amounts per currency plus lifetime counters for the authenticated wallet.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.BalanceResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/balance [get]
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	balance, err := h.balanceService.GetBalance(r.Context(), identity.Wallet)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewBalanceDTO(balance))
}

// GetTransactions godoc
//
//	@Summary		Transaction history
//	@Description	Newest first.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Max entries (default 100, max 500)"
//	@Success		200		{array}		dto.TransactionDTO
//	@Failure		400		{object}	utils.Response	"Invalid limit"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/transactions [get]
func (h *BalanceHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTransactionsLimit {
			httperr.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.balanceService.GetTransactions(r.Context(), identity.Wallet, limit)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	response := make([]dto.TransactionDTO, len(list))
	for i := range list {
		response[i] = dto.NewTransactionDTO(&list[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// Withdraw godoc
//
//	@Summary		Request a withdrawal
//	@Description	Debits the amount and records a pending withdrawal for an operator to pay out.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WithdrawRequestDTO	true	"Withdrawal request"
//	@Success		201		{object}	dto.TransactionDTO
//	@Failure		400		{object}	utils.Response	"Invalid request or insufficient balance"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/withdrawals [post]
func (h *BalanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.WithdrawRequestDTO
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
	rec, err := h.balanceService.Withdraw(r.Context(), identity.Wallet, req.Amount, c, req.DestinationAddress)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewTransactionDTO(rec))
}

// CompleteWithdrawal godoc
//
//	@Summary		Mark a withdrawal as paid out
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Withdrawal id"
//	@Param			request	body		dto.CompleteWithdrawalRequestDTO	false	"Payout signature"
//	@Success		200		{object}	dto.TransactionDTO
//	@Failure		400		{object}	utils.Response	"Withdrawal is not pending"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		403		{object}	utils.Response	"Admin role required"
//	@Failure		404		{object}	utils.Response	"Withdrawal not found"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/admin/withdrawals/{id}/complete [post]
func (h *BalanceHandler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "withdrawal")
	if !ok {
		return
	}
	var req dto.CompleteWithdrawalRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httperr.BadRequest(w, err.Error())
		return
	}
	rec, err := h.balanceService.CompleteWithdrawal(r.Context(), id, req.PayoutSignature)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewTransactionDTO(rec))
}

// FailWithdrawal godoc
//
//	@Summary		Reject a withdrawal and refund it
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Withdrawal id"
//	@Param			request	body		dto.FailWithdrawalRequestDTO	true	"Failure reason"
//	@Success		200		{object}	dto.TransactionDTO
//	@Failure		400		{object}	utils.Response	"Withdrawal is not pending"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		403		{object}	utils.Response	"Admin role required"
//	@Failure		404		{object}	utils.Response	"Withdrawal not found"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/admin/withdrawals/{id}/fail [post]
func (h *BalanceHandler) FailWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "withdrawal")
	if !ok {
		return
	}
	var req dto.FailWithdrawalRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httperr.BadRequest(w, err.Error())
		return
	}
	rec, err := h.balanceService.FailWithdrawal(r.Context(), id, req.Reason)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewTransactionDTO(rec))
}
