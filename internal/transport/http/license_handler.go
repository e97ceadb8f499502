package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "braindock/internal/errors"
	"braindock/internal/infrastructure"
	"braindock/internal/services"
)

var validate = validator.New()

// LicenseHandler handles entitlement HTTP requests.
type LicenseHandler struct {
	service services.LicenseService
	logger  *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger) *LicenseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// ActivateKeyRequest is the payload for key-based activation.
type ActivateKeyRequest struct {
	LicenseKey string `json:"license_key" validate:"required,min=8"`
}

// Bind implements the render.Binder interface.
func (req *ActivateKeyRequest) Bind(r *http.Request) error {
	return validate.Struct(req)
}

// ConfirmPaymentRequest is the payload for hosted payment confirmation.
type ConfirmPaymentRequest struct {
	SessionID        string `json:"session_id" validate:"required"`
	PaymentReference string `json:"payment_reference,omitempty"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
}

// Bind implements the render.Binder interface.
func (req *ConfirmPaymentRequest) Bind(r *http.Request) error {
	return validate.Struct(req)
}

// RedeemPromoRequest is the payload for promo code redemption.
type RedeemPromoRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	PromoCode string `json:"promo_code" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

// Bind implements the render.Binder interface.
func (req *RedeemPromoRequest) Bind(r *http.Request) error {
	return validate.Struct(req)
}

// ActivationResponse is the success payload for all activation paths.
type ActivationResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Method    string    `json:"activation_method"`
	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Routes returns a chi router for the license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/status", h.GetStatus)
	r.Get("/debug", h.GetDebugInfo)
	r.Post("/activate", h.ActivateWithKey)
	r.Post("/payment/confirm", h.ConfirmPayment)
	r.Post("/promo/redeem", h.RedeemPromo)
	r.Post("/revoke", h.Revoke)

	return r
}

// GetStatus handles GET /api/license/status.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response, err := h.service.GetStatus(ctx)
	if err != nil {
		h.renderError(w, r, "get_status", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

// GetDebugInfo handles GET /api/license/debug.
func (h *LicenseHandler) GetDebugInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.service.GetDebugInfo(ctx)
	if err != nil {
		h.renderError(w, r, "get_debug_info", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, info)
}

// ActivateWithKey handles POST /api/license/activate.
func (h *LicenseHandler) ActivateWithKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("license-handler").Start(r.Context(), "license_handler.activate_with_key",
		trace.WithAttributes(
			attribute.String("http.route", "/api/license/activate"),
			attribute.String("license.method", "license_key"),
		),
	)
	defer span.End()

	req := &ActivateKeyRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderBindError(w, r, err)
		return
	}

	if err := h.service.ActivateWithKey(ctx, req.LicenseKey); err != nil {
		infrastructure.RecordError(ctx, err)
		h.renderError(w, r, "activate_with_key", err)
		return
	}

	infrastructure.AddSpanEvent(ctx, "license.activated", map[string]interface{}{
		"activation_method": "license_key",
	})
	h.renderActivated(w, r.WithContext(ctx), "license_key", "License activated")
}

// ConfirmPayment handles POST /api/license/payment/confirm.
func (h *LicenseHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("license-handler").Start(r.Context(), "license_handler.confirm_payment",
		trace.WithAttributes(
			attribute.String("http.route", "/api/license/payment/confirm"),
			attribute.String("license.method", "hosted_payment"),
		),
	)
	defer span.End()

	req := &ConfirmPaymentRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderBindError(w, r, err)
		return
	}

	if err := h.service.ConfirmPayment(ctx, req.SessionID, req.PaymentReference, req.Email); err != nil {
		infrastructure.RecordError(ctx, err)
		h.renderError(w, r, "confirm_payment", err)
		return
	}

	infrastructure.AddSpanEvent(ctx, "license.activated", map[string]interface{}{
		"activation_method": "hosted_payment",
	})
	h.renderActivated(w, r.WithContext(ctx), "hosted_payment", "Payment confirmed, license activated")
}

// RedeemPromo handles POST /api/license/promo/redeem.
func (h *LicenseHandler) RedeemPromo(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("license-handler").Start(r.Context(), "license_handler.redeem_promo",
		trace.WithAttributes(
			attribute.String("http.route", "/api/license/promo/redeem"),
			attribute.String("license.method", "promo_code"),
		),
	)
	defer span.End()

	req := &RedeemPromoRequest{}
	if err := render.Bind(r, req); err != nil {
		h.renderBindError(w, r, err)
		return
	}

	if err := h.service.RedeemPromo(ctx, req.SessionID, req.PromoCode, req.Email); err != nil {
		infrastructure.RecordError(ctx, err)
		h.renderError(w, r, "redeem_promo", err)
		return
	}

	infrastructure.AddSpanEvent(ctx, "license.activated", map[string]interface{}{
		"activation_method": "promo_code",
	})
	h.renderActivated(w, r.WithContext(ctx), "promo_code", "Promo code redeemed, license activated")
}

// Revoke handles POST /api/license/revoke.
func (h *LicenseHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Revoke(ctx); err != nil {
		h.renderError(w, r, "revoke", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &ActivationResponse{
		Success:   true,
		Message:   "License revoked",
		Method:    "none",
		TraceID:   infrastructure.GetTraceID(ctx),
		Timestamp: time.Now().UTC(),
	})
}

func (h *LicenseHandler) renderActivated(w http.ResponseWriter, r *http.Request, method, message string) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &ActivationResponse{
		Success:   true,
		Message:   message,
		Method:    method,
		TraceID:   infrastructure.GetTraceID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func (h *LicenseHandler) renderBindError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := infrastructure.GetTraceID(r.Context())

	infrastructure.WithError(h.logger, err).WarnContext(r.Context(), "request binding failed",
		slog.String("trace_id", traceID),
	)

	detail := "Invalid request payload"
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		detail = "Validation failed for field: " + verrs[0].Field()
	}

	render.Render(w, r, apierrors.NewProblemDetails(
		http.StatusBadRequest,
		"/errors/invalid-request",
		"Invalid Request",
		detail,
		r.URL.Path,
	).WithExtension("trace_id", traceID).
		WithExtension("error_code", "INVALID_REQUEST"))
}

func (h *LicenseHandler) renderError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)

	infrastructure.WithError(h.logger, err).ErrorContext(ctx, "license operation failed",
		slog.String("trace_id", traceID),
		slog.String("operation", operation),
	)

	render.Render(w, r, apierrors.MapLicenseError(err, traceID))
}
