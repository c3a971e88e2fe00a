package handler

import "time"

// attachProofRequest records evidence that already lives in the proof store.
type attachProofRequest struct {
	ImageRef string `json:"image_ref" validate:"required,max=512"`
}

type proofResponse struct {
	ID         string    `json:"id"`
	LegID      string    `json:"leg_id"`
	ImageRef   string    `json:"image_ref"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}
