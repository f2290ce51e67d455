package models

// Requests for the pipeline HTTP endpoints. Defined in domain for consistency
// and reuse.

type PredictionsRequest struct {
	Date   string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Region string `query:"region" json:"region" default:"FOREIGN" validate:"oneof=DOMESTIC FOREIGN"`
}

type PerformanceRequest struct {
	Region string `query:"region" json:"region" default:"FOREIGN" validate:"oneof=DOMESTIC FOREIGN"`
	Days   int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=90"`
}

type TriggersRequest struct {
	Date string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type RetrainRequest struct {
	Region string `json:"region" validate:"required,oneof=DOMESTIC FOREIGN"`
}
