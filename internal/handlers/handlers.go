package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/solyield/docs"
	"github.com/GlebRadaev/solyield/internal/domain"
	authhandlers "github.com/GlebRadaev/solyield/internal/handlers/auth"
	balancehandlers "github.com/GlebRadaev/solyield/internal/handlers/balance"
	cronhandlers "github.com/GlebRadaev/solyield/internal/handlers/cron"
	deposithandlers "github.com/GlebRadaev/solyield/internal/handlers/deposits"
	investmenthandlers "github.com/GlebRadaev/solyield/internal/handlers/investments"
	"github.com/GlebRadaev/solyield/internal/service"
	"github.com/GlebRadaev/solyield/pkg/auth"
	"github.com/GlebRadaev/solyield/pkg/utils"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

type AuthHandler interface {
	Challenge(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Session(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	CompleteProfile(w http.ResponseWriter, r *http.Request)
}

type DepositHandler interface {
	Verify(w http.ResponseWriter, r *http.Request)
	CreateIntent(w http.ResponseWriter, r *http.Request)
}

type BalanceHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
	Withdraw(w http.ResponseWriter, r *http.Request)
	CompleteWithdrawal(w http.ResponseWriter, r *http.Request)
	FailWithdrawal(w http.ResponseWriter, r *http.Request)
}

type InvestmentHandler interface {
	Plans(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
}

type CronHandler interface {
	DailyProfit(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler       AuthHandler
	DepositHandler    DepositHandler
	BalanceHandler    BalanceHandler
	InvestmentHandler InvestmentHandler
	CronHandler       CronHandler

	Sessions   auth.SessionVerifier
	CronSecret string
}

func New(s *service.Services, platformWallet, cronSecret string) *Handlers {
	return &Handlers{
		AuthHandler:       authhandlers.New(s.AuthService),
		DepositHandler:    deposithandlers.New(s.DepositService, platformWallet),
		BalanceHandler:    balancehandlers.New(s.BalanceService),
		InvestmentHandler: investmenthandlers.New(s.InvestmentService),
		CronHandler:       cronhandlers.New(s.AccrualService),
		Sessions:          s.SessionVerifier,
		CronSecret:        cronSecret,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.MethodNotAllowed(methodNotAllowed)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	bearer := auth.Middleware(h.Sessions)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/challenge", h.AuthHandler.Challenge)
		r.Post("/login", h.AuthHandler.Login)
		r.Group(func(r chi.Router) {
			r.Use(bearer)
			r.Get("/session", h.AuthHandler.Session)
			r.Post("/logout", h.AuthHandler.Logout)
			r.Post("/profile", h.AuthHandler.CompleteProfile)
		})
	})

	r.Route("/deposits", func(r chi.Router) {
		r.Post("/verify", h.DepositHandler.Verify)
		r.With(bearer).Post("/intent", h.DepositHandler.CreateIntent)
	})

	r.Get("/investments/plans", h.InvestmentHandler.Plans)

	r.Group(func(r chi.Router) {
		r.Use(bearer)
		r.Get("/balance", h.BalanceHandler.GetBalance)
		r.Get("/transactions", h.BalanceHandler.GetTransactions)
		r.Post("/withdrawals", h.BalanceHandler.Withdraw)
		r.Route("/investments", func(r chi.Router) {
			r.Get("/", h.InvestmentHandler.List)
			r.Post("/", h.InvestmentHandler.Create)
			r.Get("/{id}", h.InvestmentHandler.Get)
			r.Post("/{id}/cancel", h.InvestmentHandler.Cancel)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(domain.RoleAdmin))
			r.Post("/withdrawals/{id}/complete", h.BalanceHandler.CompleteWithdrawal)
			r.Post("/withdrawals/{id}/fail", h.BalanceHandler.FailWithdrawal)
		})
	})

	r.Route("/cron", func(r chi.Router) {
		r.Use(auth.SharedSecret(h.CronSecret))
		r.Get("/daily-profit", h.CronHandler.DailyProfit)
		r.Post("/daily-profit", h.CronHandler.DailyProfit)
	})

	return r
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
