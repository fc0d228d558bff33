package dto

import "time"

type CreateObligationRequest struct {
	Kind         string     `json:"kind"`
	Description  string     `json:"description"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	Frequency    string     `json:"frequency"`
	AnchorDate   time.Time  `json:"anchor_date"`
	EndDate      *time.Time `json:"end_date"`
	TenureMonths *int       `json:"tenure_months"`
}

type UpdateObligationRequest struct {
	Description *string    `json:"description"`
	Amount      *float64   `json:"amount"`
	EndDate     *time.Time `json:"end_date"`
}

type PreviewResponse struct {
	Frequency string      `json:"frequency"`
	Dates     []time.Time `json:"dates"`
}
