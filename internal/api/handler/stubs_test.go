package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/shipment-legs/internal/api/middleware"
	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// --- Stub services ---

type stubLegService struct {
	ports.LegService // unimplemented methods panic

	getFn     func(ctx context.Context, legID string) (*domain.ShipmentLeg, error)
	byCodeFn  func(ctx context.Context, code string) (*domain.ShipmentLeg, error)
	byShortFn func(ctx context.Context, short string) ([]*domain.ShipmentLeg, error)
	listFn    func(ctx context.Context, in ports.ListLegsInput) (*ports.ListLegsResult, error)
	verifyFn  func(ctx context.Context, legID string, actor domain.Actor, code string) (*ports.VerificationResult, error)
	assignFn  func(ctx context.Context, legID, courierID string, actor domain.Actor) (*domain.ShipmentLeg, error)
	deliverFn func(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error)
	cancelFn  func(ctx context.Context, legID string, actor domain.Actor, reason string) (*domain.ShipmentLeg, error)
}

func (s *stubLegService) GetLeg(ctx context.Context, legID string) (*domain.ShipmentLeg, error) {
	return s.getFn(ctx, legID)
}

func (s *stubLegService) GetByTrackingCode(ctx context.Context, code string) (*domain.ShipmentLeg, error) {
	return s.byCodeFn(ctx, code)
}

func (s *stubLegService) FindByShortCode(ctx context.Context, short string) ([]*domain.ShipmentLeg, error) {
	return s.byShortFn(ctx, short)
}

func (s *stubLegService) ListLegs(ctx context.Context, in ports.ListLegsInput) (*ports.ListLegsResult, error) {
	return s.listFn(ctx, in)
}

func (s *stubLegService) Verify(ctx context.Context, legID string, actor domain.Actor, code string) (*ports.VerificationResult, error) {
	return s.verifyFn(ctx, legID, actor, code)
}

func (s *stubLegService) Assign(ctx context.Context, legID, courierID string, actor domain.Actor) (*domain.ShipmentLeg, error) {
	return s.assignFn(ctx, legID, courierID, actor)
}

func (s *stubLegService) ConfirmDelivery(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error) {
	return s.deliverFn(ctx, legID, actor)
}

func (s *stubLegService) Cancel(ctx context.Context, legID string, actor domain.Actor, reason string) (*domain.ShipmentLeg, error) {
	return s.cancelFn(ctx, legID, actor, reason)
}

type stubLedgerService struct {
	depositFn func(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error)
	entryFn   func(ctx context.Context, in ports.EntryInput) (*domain.LedgerTransaction, error)
	balanceFn func(ctx context.Context, courierID string, actor domain.Actor) (*domain.Balance, error)
	listFn    func(ctx context.Context, in ports.ListTransactionsInput) (*ports.ListTransactionsResult, error)
}

func (s *stubLedgerService) RecordDeposit(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error) {
	return s.depositFn(ctx, in)
}

func (s *stubLedgerService) RecordEntry(ctx context.Context, in ports.EntryInput) (*domain.LedgerTransaction, error) {
	return s.entryFn(ctx, in)
}

func (s *stubLedgerService) Balance(ctx context.Context, courierID string, actor domain.Actor) (*domain.Balance, error) {
	return s.balanceFn(ctx, courierID, actor)
}

func (s *stubLedgerService) ListTransactions(ctx context.Context, in ports.ListTransactionsInput) (*ports.ListTransactionsResult, error) {
	return s.listFn(ctx, in)
}

type stubShipmentService struct {
	dispatchFn func(ctx context.Context, in ports.DispatchInput) (*ports.ShipmentDetail, error)
	getFn      func(ctx context.Context, orderID string) (*ports.ShipmentDetail, error)
}

func (s *stubShipmentService) Dispatch(ctx context.Context, in ports.DispatchInput) (*ports.ShipmentDetail, error) {
	return s.dispatchFn(ctx, in)
}

func (s *stubShipmentService) GetShipment(ctx context.Context, orderID string) (*ports.ShipmentDetail, error) {
	return s.getFn(ctx, orderID)
}

type stubProofService struct {
	attachFn func(ctx context.Context, legID, imageRef string, actor domain.Actor) (*domain.ProofOfDeliveryRecord, error)
	uploadFn func(ctx context.Context, in ports.UploadProofInput) (*domain.ProofOfDeliveryRecord, error)
	listFn   func(ctx context.Context, legID string) ([]*domain.ProofOfDeliveryRecord, error)
}

func (s *stubProofService) Attach(ctx context.Context, legID, imageRef string, actor domain.Actor) (*domain.ProofOfDeliveryRecord, error) {
	return s.attachFn(ctx, legID, imageRef, actor)
}

func (s *stubProofService) Upload(ctx context.Context, in ports.UploadProofInput) (*domain.ProofOfDeliveryRecord, error) {
	return s.uploadFn(ctx, in)
}

func (s *stubProofService) List(ctx context.Context, legID string) ([]*domain.ProofOfDeliveryRecord, error) {
	return s.listFn(ctx, legID)
}

// --- Request helpers ---

var (
	staffActor   = domain.Actor{ID: "ops-1", Role: domain.RoleStaff}
	courierActor = domain.Actor{ID: "c1", Role: domain.RoleCourier}
)

type request struct {
	method      string
	target      string
	body        string
	contentType string
	params      map[string]string
	headers     map[string]string
	actor       *domain.Actor
}

// newContext builds an echo context as if Auth had already run for actor.
func newContext(r request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.target, body)
	if r.body != "" {
		ct := r.contentType
		if ct == "" {
			ct = echo.MIMEApplicationJSON
		}
		req.Header.Set(echo.HeaderContentType, ct)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(r.params))
	values := make([]string, 0, len(r.params))
	for k, v := range r.params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	if r.actor != nil {
		c.Set(middleware.ActorIDKey, r.actor.ID)
		c.Set(middleware.RoleKey, r.actor.Role)
	}
	return c, rec
}

func sampleLeg(status domain.LegStatus) *domain.ShipmentLeg {
	return &domain.ShipmentLeg{
		ID:                "leg-1",
		ShipmentOrderID:   "ORD7F3A9C21",
		Sequence:          2,
		Terminal:          true,
		FromLocationRef:   "WH-A",
		ToLocationRef:     "CUSTOMER-9",
		AssignedCourierID: "c1",
		Status:            status,
		TrackingCode:      "ORD7F3A9C21-L02-M",
		ShortCode:         "7F3A9C21-02",
		Version:           3,
		History:           []domain.LegHistoryEntry{{Status: domain.LegPending, Actor: "ops-1"}},
	}
}

// httpCode returns the status of an echo.HTTPError, or 0 for anything else.
func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}
