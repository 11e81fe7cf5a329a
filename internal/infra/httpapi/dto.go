package httpapi

import "github.com/google/uuid"

type processVideoRequest struct {
	VideoURL    string `json:"video_url"    binding:"required"`
	GuideID     *int   `json:"guide_id"     binding:"required"`
	CallbackURL string `json:"callback_url"`
	Async       bool   `json:"async"`
}

type acceptedResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	GuideID int       `json:"guide_id"`
	Status  string    `json:"status"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}
