package request

type AnalyticsRequest struct {
	CategoryID string `validate:"omitempty,uuid"`
	TourID     string `validate:"omitempty,uuid"`
	WindowDays int    `validate:"omitempty,gte=1,lte=365"`
	Year       int    `validate:"omitempty,gte=2000,lte=2100"`
}
