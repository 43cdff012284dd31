package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/dto"
	"github.com/GlebRadaev/solyield/internal/handlers/httperr"
	"github.com/GlebRadaev/solyield/pkg/auth"
	"github.com/GlebRadaev/solyield/pkg/utils"
	"github.com/GlebRadaev/solyield/pkg/validate"
)

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=auth

type Service interface {
	Challenge(ctx context.Context, wallet string) (*domain.Challenge, error)
	Login(ctx context.Context, wallet, signature, message string) (*domain.Session, *domain.User, error)
	CurrentUser(ctx context.Context, identity *auth.Identity) (*domain.User, error)
	Logout(ctx context.Context, token string) error
	CompleteProfile(ctx context.Context, userID, username, displayName string) (*domain.User, error)
}

type AuthHandler struct {
	authService Service
}

func New(authService Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Challenge godoc
//
//	@Summary		Issue a login challenge
//	@Description	Returns a one-time message the wallet must sign to log in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ChallengeRequestDTO	true	"Wallet to authenticate"
//	@Success		200		{object}	dto.ChallengeResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid wallet address"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/auth/challenge [post]
func (h *AuthHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req dto.ChallengeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httperr.BadRequest(w, err.Error())
		return
	}
	challenge, err := h.authService.Challenge(r.Context(), req.WalletAddress)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ChallengeResponseDTO{
		Message:   challenge.Message,
		Timestamp: challenge.Timestamp,
		Nonce:     challenge.Nonce,
	})
}

// Login godoc
//
//	@Summary		Log in with a signed challenge
//	@Description	Verifies the wallet signature over the issued challenge and opens a session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.LoginRequestDTO	true	"Signed challenge"
//	@Success		200		{object}	dto.LoginResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Invalid signature or challenge"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httperr.BadRequest(w, err.Error())
		return
	}
	session, user, err := h.authService.Login(r.Context(), req.WalletAddress, req.Signature, req.Message)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	w.Header().Set("Authorization", "Bearer "+session.Token)
	utils.RespondWithJSON(w, http.StatusOK, dto.LoginResponseDTO{
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt,
		User:         dto.NewUserDTO(user),
	})
}

// Session godoc
//
//	@Summary		Current session
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.SessionResponseDTO
//	@Failure		401	{object}	utils.Response	"Invalid, expired or inactive session"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/auth/session [get]
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	user, err := h.authService.CurrentUser(r.Context(), identity)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.SessionResponseDTO{User: dto.NewUserDTO(user), Role: identity.Role})
}

// Logout godoc
//
//	@Summary		Close the current session
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.authService.Logout(r.Context(), identity.Token); err != nil {
		httperr.Respond(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteProfile godoc
//
//	@Summary		Set username and display name
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.ProfileRequestDTO	true	"Profile"
//	@Success		200		{object}	dto.UserDTO
//	@Failure		400		{object}	utils.Response	"Invalid or taken username"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/auth/profile [post]
func (h *AuthHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.ProfileRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperr.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httperr.BadRequest(w, err.Error())
		return
	}
	user, err := h.authService.CompleteProfile(r.Context(), identity.UserID, req.Username, req.DisplayName)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewUserDTO(user))
}
