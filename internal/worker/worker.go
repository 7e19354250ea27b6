// Package worker is the single request handler in front of the site: CORS
// preflight, the form relay endpoint and the static assets.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/romenn/site-worker/internal/relay"
	"github.com/romenn/site-worker/internal/submission"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const SendEmailPath = "/api/send-email"

const tracerName = "github.com/romenn/site-worker/internal/worker"

// Relayer sends a submission as the notification and confirmation pair.
type Relayer interface {
	Configured() bool
	MissingCredential() string
	Send(ctx context.Context, s *submission.Submission) (*relay.Result, error)
}

type Handler struct {
	relay        Relayer
	assets       http.Handler
	maxBodyBytes int64
	tracer       trace.Tracer
}

func New(r Relayer, assets http.Handler, maxBodyBytes int64) *Handler {
	return &Handler{
		relay:        r,
		assets:       assets,
		maxBodyBytes: maxBodyBytes,
		tracer:       otel.Tracer(tracerName),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.ErrorContext(r.Context(), "panic serving request", "method", r.Method, "path", r.URL.Path, "panic", rec)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		}
	}()

	switch {
	case r.Method == http.MethodOptions:
		preflight(w)
	case r.URL.Path == SendEmailPath:
		h.sendEmail(w, r)
	default:
		h.assets.ServeHTTP(w, r)
	}
}

func preflight(w http.ResponseWriter) {
	setCORS(w.Header())
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func (h *Handler) sendEmail(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	setCORS(w.Header())

	ctx, span := h.tracer.Start(r.Context(), "relay "+SendEmailPath,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("request_id", requestID)),
	)
	defer span.End()

	logger := slog.With("request_id", requestID)

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	if !h.relay.Configured() {
		logger.ErrorContext(ctx, "email provider credential missing", "missing", h.relay.MissingCredential())
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Email service not configured",
			Details: h.relay.MissingCredential() + " is not set",
		})
		return
	}

	s, err := submission.Decode(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
		case errors.Is(err, submission.ErrInvalidAttachment):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid attachment", Details: err.Error()})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		}
		return
	}

	span.SetAttributes(attribute.String("form_type", s.FormType))

	res, err := h.relay.Send(ctx, s)
	if err != nil {
		span.RecordError(err)
		status, body := errorFor(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "relay failed", "form_type", s.FormType, "error", err)
		} else {
			logger.InfoContext(ctx, "submission rejected", "form_type", s.FormType, "status", status, "error", err)
		}
		writeJSON(w, status, body)
		return
	}

	logger.InfoContext(ctx, "relay succeeded", "form_type", s.FormType)

	writeJSON(w, http.StatusOK, successResponse{
		Success:           true,
		Message:           "Emails enviados correctamente",
		BusinessMessageID: res.BusinessMessageID,
		ClientMessageID:   res.ClientMessageID,
	})
}

// errorFor maps a relay error to its response.
func errorFor(err error) (int, errorResponse) {
	var denied *relay.DeniedError
	var sendErr *relay.SendError

	switch {
	case errors.Is(err, submission.ErrMissingFields):
		return http.StatusBadRequest, errorResponse{Error: "Missing required fields: formType, email"}
	case errors.Is(err, submission.ErrInvalidAttachment):
		return http.StatusBadRequest, errorResponse{Error: "Invalid attachment", Details: err.Error()}
	case errors.Is(err, relay.ErrInvalidEmail):
		return http.StatusBadRequest, errorResponse{Error: "Invalid email address"}
	case errors.As(err, &denied):
		return http.StatusForbidden, errorResponse{Error: "Submission rejected", Details: denied.Reason}
	case errors.Is(err, relay.ErrNotConfigured):
		return http.StatusInternalServerError, errorResponse{Error: "Email service not configured"}
	case errors.As(err, &sendErr):
		return http.StatusInternalServerError, errorResponse{
			Error:             "Error sending email",
			Details:           sendErr.Error(),
			BusinessMessageID: sendErr.BusinessMessageID,
		}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Error sending email", Details: err.Error()}
	}
}
