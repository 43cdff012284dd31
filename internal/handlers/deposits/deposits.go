package deposits

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

//go:generate mockgen -source=deposits.go -destination=mock_deposits.go -package=deposits

type Service interface {
	Verify(ctx context.Context, claim domain.DepositClaim) (*domain.Transaction, error)
	CreateIntent(ctx context.Context, wallet string, userID *string, amount decimal.Decimal, c domain.Currency) (*domain.Transaction, error)
}

type DepositHandler struct {
	depositService Service
	platformWallet string
}

func New(depositService Service, platformWallet string) *DepositHandler {
	return &DepositHandler{
		depositService: depositService,
		platformWallet: platformWallet,
	}
}

// Verify godoc
//
//	@Summary		Verify and credit an on-chain deposit
//	@Description	Checks the transfer on chain and credits the ledger. A signature is credited at most once.
//	@Tags			Deposits
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.VerifyDepositRequestDTO	true	"Deposit claim"
//	@Success		200		{object}	dto.VerifyDepositResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid claim, verification failed or already processed"
//	@Failure		404		{object}	utils.Response	"Unknown deposit intent"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/deposits/verify [post]
func (h *DepositHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyDepositRequestDTO
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

	rec, err := h.depositService.Verify(r.Context(), domain.DepositClaim{
		Signature:     req.TxSignature,
		WalletAddress: req.WalletAddress,
		Amount:        req.Amount,
		Currency:      c,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.VerifyDepositResponseDTO{
		Verified:    true,
		Transaction: dto.NewTransactionDTO(rec),
	})
}

// CreateIntent godoc
//
//	@Summary		Announce a deposit
//	@Description	Records a pending deposit whose id can be sent with the signature to /deposits/verify.
//	@Tags			Deposits
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.DepositIntentRequestDTO	true	"Expected deposit"
//	@Success		201		{object}	dto.DepositIntentResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid amount or currency"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/deposits/intent [post]
func (h *DepositHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.DepositIntentRequestDTO
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
	rec, err := h.depositService.CreateIntent(r.Context(), identity.Wallet, &userID, req.Amount, c)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.DepositIntentResponseDTO{
		TransactionID:    rec.ID,
		RecipientAddress: h.platformWallet,
	})
}
