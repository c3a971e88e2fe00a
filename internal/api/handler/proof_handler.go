package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/shipment-legs/internal/api/metrics"
	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// proofFormField is the multipart field carrying the evidence image.
const proofFormField = "image"

// ProofHandler records proof-of-delivery evidence against terminal legs.
type ProofHandler struct {
	service  ports.ProofService
	maxBytes int64
}

func NewProofHandler(service ports.ProofService, maxBytes int64) *ProofHandler {
	return &ProofHandler{service: service, maxBytes: maxBytes}
}

// Upload handles POST /v1/legs/:id/proof.
//
// @Summary      Upload a proof-of-delivery image
// @Description  Only allowed on the terminal leg once it is DELIVERED.
// @Tags         proof
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true  "Leg id"
// @Param        image  formData  file    true  "Evidence image"
// @Success      201    {object}  envelope{data=proofResponse}
// @Failure      400    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Failure      413    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Router       /v1/legs/{id}/proof [post]
func (h *ProofHandler) Upload(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	if h.maxBytes > 0 {
		req := c.Request()
		req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxBytes+1<<20)
	}
	fh, err := c.FormFile(proofFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("multipart field %q is required", proofFormField))
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", h.maxBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	rec, err := h.service.Upload(c.Request().Context(), ports.UploadProofInput{
		LegID:       c.Param("id"),
		Actor:       actor,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return err
	}

	metrics.ProofUploadBytes.Observe(float64(fh.Size))
	return respond(c, http.StatusCreated, "proof of delivery recorded", toProofResponse(rec))
}

// Attach handles POST /v1/legs/:id/proof/ref.
//
// @Summary      Record a proof-of-delivery reference
// @Description  For images already uploaded to the proof store by the courier app.
// @Tags         proof
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Leg id"
// @Param        body  body      attachProofRequest  true  "Image reference"
// @Success      201   {object}  envelope{data=proofResponse}
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/legs/{id}/proof/ref [post]
func (h *ProofHandler) Attach(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req attachProofRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rec, err := h.service.Attach(c.Request().Context(), c.Param("id"), req.ImageRef, actor)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "proof of delivery recorded", toProofResponse(rec))
}

// List handles GET /v1/legs/:id/proof.
//
// @Summary      List proof-of-delivery records of a leg
// @Tags         proof
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Leg id"
// @Success      200  {object}  envelope{data=[]proofResponse}
// @Failure      404  {object}  errorResponse
// @Router       /v1/legs/{id}/proof [get]
func (h *ProofHandler) List(c echo.Context) error {
	recs, err := h.service.List(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	out := make([]proofResponse, len(recs))
	for i, r := range recs {
		out[i] = toProofResponse(r)
	}
	return ok(c, "proofs retrieved", out)
}

func toProofResponse(r *domain.ProofOfDeliveryRecord) proofResponse {
	return proofResponse{
		ID:         r.ID,
		LegID:      r.LegID,
		ImageRef:   r.ImageRef,
		UploadedBy: r.UploadedBy,
		UploadedAt: r.UploadedAt.UTC(),
	}
}
