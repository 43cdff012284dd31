package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/solyield/internal/accrual"
	"github.com/GlebRadaev/solyield/internal/config"
	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/handlers/auth"
	"github.com/GlebRadaev/solyield/internal/handlers/balance"
	"github.com/GlebRadaev/solyield/internal/handlers/deposits"
	"github.com/GlebRadaev/solyield/internal/handlers/investments"
	"github.com/GlebRadaev/solyield/internal/service"
	pkgauth "github.com/GlebRadaev/solyield/pkg/auth"
)

type sessions map[string]*pkgauth.Identity

func (s sessions) VerifySession(_ context.Context, token string) (*pkgauth.Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return nil, domain.ErrAuth
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)

	services := &service.Services{
		AuthService:       auth.NewMockService(ctrl),
		DepositService:    deposits.NewMockService(ctrl),
		BalanceService:    balance.NewMockService(ctrl),
		InvestmentService: investments.NewMockService(ctrl),
		AccrualService:    accrual.New(&config.Config{}, accrual.NewMockProcessor(ctrl)),
		SessionVerifier:   sessions{},
	}

	h := New(services, "platform", "secret")
	assert.NotNil(t, h, "Handlers should not be nil")
	assert.Equal(t, "secret", h.CronSecret)
}

func TestInitRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)

	authHandler := NewMockAuthHandler(ctrl)
	depositHandler := NewMockDepositHandler(ctrl)
	balanceHandler := NewMockBalanceHandler(ctrl)
	investmentHandler := NewMockInvestmentHandler(ctrl)
	cronHandler := NewMockCronHandler(ctrl)

	anyTimes := func(c *gomock.Call) { c.AnyTimes() }
	anyTimes(authHandler.EXPECT().Challenge(gomock.Any(), gomock.Any()))
	anyTimes(authHandler.EXPECT().Login(gomock.Any(), gomock.Any()))
	anyTimes(authHandler.EXPECT().Session(gomock.Any(), gomock.Any()))
	anyTimes(authHandler.EXPECT().Logout(gomock.Any(), gomock.Any()))
	anyTimes(authHandler.EXPECT().CompleteProfile(gomock.Any(), gomock.Any()))
	anyTimes(depositHandler.EXPECT().Verify(gomock.Any(), gomock.Any()))
	anyTimes(depositHandler.EXPECT().CreateIntent(gomock.Any(), gomock.Any()))
	anyTimes(balanceHandler.EXPECT().GetBalance(gomock.Any(), gomock.Any()))
	anyTimes(balanceHandler.EXPECT().GetTransactions(gomock.Any(), gomock.Any()))
	anyTimes(balanceHandler.EXPECT().Withdraw(gomock.Any(), gomock.Any()))
	anyTimes(balanceHandler.EXPECT().CompleteWithdrawal(gomock.Any(), gomock.Any()))
	anyTimes(balanceHandler.EXPECT().FailWithdrawal(gomock.Any(), gomock.Any()))
	anyTimes(investmentHandler.EXPECT().Plans(gomock.Any(), gomock.Any()))
	anyTimes(investmentHandler.EXPECT().List(gomock.Any(), gomock.Any()))
	anyTimes(investmentHandler.EXPECT().Get(gomock.Any(), gomock.Any()))
	anyTimes(investmentHandler.EXPECT().Create(gomock.Any(), gomock.Any()))
	anyTimes(investmentHandler.EXPECT().Cancel(gomock.Any(), gomock.Any()))
	anyTimes(cronHandler.EXPECT().DailyProfit(gomock.Any(), gomock.Any()))

	h := &Handlers{
		AuthHandler:       authHandler,
		DepositHandler:    depositHandler,
		BalanceHandler:    balanceHandler,
		InvestmentHandler: investmentHandler,
		CronHandler:       cronHandler,
		Sessions: sessions{
			"user-token":  {UserID: "u-1", Role: domain.RoleUser},
			"admin-token": {UserID: "u-2", Role: domain.RoleAdmin},
		},
		CronSecret: "cron-secret",
	}

	router := chi.NewRouter()
	h.InitRoutes(router)

	tests := []struct {
		method string
		url    string
		token  string
		status int
	}{
		{"POST", "/auth/challenge", "", http.StatusOK},
		{"POST", "/auth/login", "", http.StatusOK},
		{"GET", "/auth/session", "", http.StatusUnauthorized},
		{"GET", "/auth/session", "stale", http.StatusUnauthorized},
		{"GET", "/auth/session", "user-token", http.StatusOK},
		{"POST", "/auth/logout", "user-token", http.StatusOK},
		{"POST", "/auth/profile", "", http.StatusUnauthorized},
		{"POST", "/deposits/verify", "", http.StatusOK},
		{"POST", "/deposits/intent", "", http.StatusUnauthorized},
		{"POST", "/deposits/intent", "user-token", http.StatusOK},
		{"GET", "/balance", "", http.StatusUnauthorized},
		{"GET", "/balance", "user-token", http.StatusOK},
		{"GET", "/transactions", "user-token", http.StatusOK},
		{"POST", "/withdrawals", "", http.StatusUnauthorized},
		{"POST", "/withdrawals", "user-token", http.StatusOK},
		{"GET", "/investments/plans", "", http.StatusOK},
		{"GET", "/investments", "", http.StatusUnauthorized},
		{"GET", "/investments", "user-token", http.StatusOK},
		{"POST", "/investments", "user-token", http.StatusOK},
		{"GET", "/investments/abc", "user-token", http.StatusOK},
		{"POST", "/investments/abc/cancel", "user-token", http.StatusOK},
		{"POST", "/admin/withdrawals/abc/complete", "", http.StatusUnauthorized},
		{"POST", "/admin/withdrawals/abc/complete", "user-token", http.StatusForbidden},
		{"POST", "/admin/withdrawals/abc/complete", "admin-token", http.StatusOK},
		{"POST", "/admin/withdrawals/abc/fail", "admin-token", http.StatusOK},
		{"POST", "/cron/daily-profit", "", http.StatusUnauthorized},
		{"POST", "/cron/daily-profit", "user-token", http.StatusUnauthorized},
		{"POST", "/cron/daily-profit", "cron-secret", http.StatusOK},
		{"GET", "/cron/daily-profit", "cron-secret", http.StatusOK},
		{"DELETE", "/balance", "user-token", http.StatusMethodNotAllowed},
		{"GET", "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url+" "+tt.token, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
