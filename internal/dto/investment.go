package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/solyield/internal/domain"
)

type CreateInvestmentRequestDTO struct {
	PlanName string          `json:"plan_name" validate:"required" example:"Growth"`
	Amount   decimal.Decimal `json:"amount" validate:"required,gt=0" swaggertype:"string" example:"10"`
	Currency string          `json:"currency" validate:"required" example:"USDC"`
}

type InvestmentDTO struct {
	ID             string          `json:"id"`
	PlanName       string          `json:"plan_name"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string"`
	Currency       string          `json:"currency"`
	DailyReturn    decimal.Decimal `json:"daily_return" swaggertype:"string" example:"1.5"`
	DurationDays   int             `json:"duration_days" example:"30"`
	ExpectedReturn decimal.Decimal `json:"expected_return" swaggertype:"string"`
	ProfitEarned   decimal.Decimal `json:"profit_earned" swaggertype:"string"`
	Status         string          `json:"status" example:"active"`
	StartDate      time.Time       `json:"start_date"`
	MaturityDate   time.Time       `json:"maturity_date"`
	LastProfitDate *time.Time      `json:"last_profit_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
}

func NewInvestmentDTO(i *domain.Investment) InvestmentDTO {
	return InvestmentDTO{
		ID:             i.ID,
		PlanName:       i.PlanName,
		Amount:         i.Amount,
		Currency:       i.Currency.String(),
		DailyReturn:    i.DailyReturn,
		DurationDays:   i.DurationDays,
		ExpectedReturn: i.ExpectedReturn,
		ProfitEarned:   i.ProfitEarned,
		Status:         string(i.Status),
		StartDate:      i.StartDate,
		MaturityDate:   i.MaturityDate,
		LastProfitDate: i.LastProfitDate,
		EndDate:        i.EndDate,
	}
}

type AccrualReportDTO struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Completed int `json:"completed"`
	Settled   int `json:"settled"`
}
