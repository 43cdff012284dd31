package cron

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/solyield/internal/domain"
	"github.com/GlebRadaev/solyield/internal/dto"
	"github.com/GlebRadaev/solyield/internal/handlers/httperr"
	"github.com/GlebRadaev/solyield/pkg/utils"
)

//go:generate mockgen -source=cron.go -destination=mock_cron.go -package=cron

type Service interface {
	Run(ctx context.Context, now time.Time) (domain.AccrualReport, error)
}

type CronHandler struct {
	accrualService Service
	now            func() time.Time
}

func New(accrualService Service) *CronHandler {
	return &CronHandler{
		accrualService: accrualService,
		now:            time.Now,
	}
}

// DailyProfit godoc
//
//	@Summary		Run the daily accrual
//	@Description	Credits daily profit to active investments and returns matured principal. Safe to call more than once a day.
//	@Tags			Cron
//	@Security		CronSecret
//	@Produce		json
//	@Success		200	{object}	dto.AccrualReportDTO
//	@Failure		401	{object}	utils.Response	"Invalid shared secret"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/cron/daily-profit [post]
func (h *CronHandler) DailyProfit(w http.ResponseWriter, r *http.Request) {
	report, err := h.accrualService.Run(r.Context(), h.now())
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	zap.L().Info("daily profit run finished",
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Int("settled", report.Settled))
	utils.RespondWithJSON(w, http.StatusOK, dto.AccrualReportDTO(report))
}
