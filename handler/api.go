package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/mbland/emailcheck/ops"
)

const (
	ValidateEmailsPath = "/api/validate-emails"
	HealthPath         = "/health"
	MetricsPath        = "/metrics"

	RequestIdHeader = "X-Request-Id"

	// UploadFieldName is the multipart form field containing the upload.
	UploadFieldName = "file"

	// Allowance for multipart boundaries and part headers on top of the
	// maximum file size.
	multipartOverheadBytes = 64 * 1024

	unknownErrorMessage = "An unknown error occurred"
)

// ApiHandler serves the HTTP API, either directly as an http.Handler or via
// API Gateway events through HandleApiEvent.
type ApiHandler struct {
	Validator      *ops.BatchValidator
	MaxUploadBytes int64
	Metrics        *Metrics
	Log            *log.Logger
	router         chi.Router
}

// NewApiHandler builds the router for the API.
//
// metrics may be nil, in which case the /metrics endpoint isn't available.
func NewApiHandler(
	bv *ops.BatchValidator, opts *Options, metrics *Metrics, logger *log.Logger,
) *ApiHandler {
	h := &ApiHandler{
		Validator:      bv,
		MaxUploadBytes: opts.MaxUploadBytes,
		Metrics:        metrics,
		Log:            logger,
	}
	if h.MaxUploadBytes <= 0 {
		h.MaxUploadBytes = ops.MaxUploadBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(h.requestId)
	r.Use(h.logRequest)
	if metrics != nil {
		r.Use(metrics.instrument)
	}
	r.Use(h.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CorsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIdHeader},
		ExposedHeaders: []string{RequestIdHeader},
		MaxAge:         300,
	}))

	r.Get(HealthPath, h.health)
	r.Post(ValidateEmailsPath, h.validateEmails)
	if metrics != nil {
		r.Method(http.MethodGet, MetricsPath, metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		const msg = "Method not allowed"
		h.writeError(w, r, http.StatusMethodNotAllowed, msg, nil)
	})

	h.router = r
	return h
}

func (h *ApiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *ApiHandler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ApiHandler) validateEmails(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.readUpload(w, r)
	if err != nil {
		status, msg := h.uploadError(err)
		h.writeError(w, r, status, msg, err)
		return
	}

	summary, err := h.Validator.Validate(r.Context(), candidates)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err.Error(), err)
		return
	}
	h.Metrics.ObserveSummary(summary)
	h.writeJson(w, http.StatusOK, summary)
}

// readUpload streams the request body until it finds the UploadFieldName part,
// then reads and parses its content.
func (h *ApiHandler) readUpload(
	w http.ResponseWriter, r *http.Request,
) ([]string, error) {
	limit := h.MaxUploadBytes + multipartOverheadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ops.ErrNoFile, err)
	}

	for {
		part, err := mr.NextPart()

		if errors.Is(err, io.EOF) {
			return nil, ops.ErrNoFile
		} else if isMaxBytesError(err) {
			return nil, fmt.Errorf("%w: %w", ops.ErrFileTooLarge, err)
		} else if err != nil {
			return nil, fmt.Errorf("%w: %w", ops.ErrMalformedUpload, err)
		} else if part.FormName() != UploadFieldName {
			part.Close()
			continue
		}

		candidates, err := ops.ReadCandidates(part, h.MaxUploadBytes)
		part.Close()
		if isMaxBytesError(err) {
			err = fmt.Errorf("%w: %w", ops.ErrFileTooLarge, err)
		}
		return candidates, err
	}
}

// isMaxBytesError reports whether the whole request body exceeded its limit.
func isMaxBytesError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func (h *ApiHandler) uploadError(err error) (status int, msg string) {
	switch {
	case errors.Is(err, ops.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge,
			"File size exceeds " + formatSize(h.MaxUploadBytes) + " limit"
	case errors.Is(err, ops.ErrNoFile):
		return http.StatusBadRequest, ops.ErrNoFile.Error()
	case errors.Is(err, ops.ErrNoCandidates):
		return http.StatusBadRequest, ops.ErrNoCandidates.Error()
	case errors.Is(err, ops.ErrMalformedUpload):
		return http.StatusBadRequest, ops.ErrMalformedUpload.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// formatSize renders n as whole megabytes or kilobytes where possible.
func formatSize(n int64) string {
	const kb, mb = 1024, 1024 * 1024

	switch {
	case n%mb == 0:
		return fmt.Sprintf("%dMB", n/mb)
	case n%kb == 0:
		return fmt.Sprintf("%dKB", n/kb)
	}
	return fmt.Sprintf("%d bytes", n)
}

func (h *ApiHandler) writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Log.Printf("ERROR writing response: %s", err)
	}
}

// writeError responds with a JSON error message. If err isn't nil, it's
// recorded for the request log line.
func (h *ApiHandler) writeError(
	w http.ResponseWriter, r *http.Request, status int, msg string, err error,
) {
	if msg == "" {
		msg = unknownErrorMessage
	}
	if info := requestInfoFrom(r.Context()); info != nil && err != nil {
		info.err = err
	}
	h.writeJson(w, status, &errorResponse{msg})
}

type requestInfoKey struct{}

type requestInfo struct {
	id  string
	err error
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// RequestId returns the ID assigned to the request by the ApiHandler.
func RequestId(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

// requestId uses the incoming RequestIdHeader value if present, such as the
// API Gateway request ID, or else generates one.
func (h *ApiHandler) requestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIdHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIdHeader, id)

		info := &requestInfo{id: id}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *ApiHandler) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		info := requestInfoFrom(r.Context())
		errMsg := ""
		if info.err != nil {
			errMsg = ": " + info.err.Error()
		}
		h.Log.Printf(`%s: %s "%s %s %s" %d%s`,
			info.id,
			r.RemoteAddr, r.Method, r.URL.Path, r.Proto, responseStatus(ww),
			errMsg,
		)
	})
}

// recoverer converts a panic into a 500 response, so that one bad request
// can't bring down the server.
func (h *ApiHandler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			} else if rec == http.ErrAbortHandler {
				panic(rec)
			}

			msg := unknownErrorMessage
			if err, ok := rec.(error); ok {
				msg = err.Error()
			} else if s, ok := rec.(string); ok {
				msg = s
			}
			err := fmt.Errorf("panic: %v", rec)
			h.writeError(w, r, http.StatusInternalServerError, msg, err)
		}()
		next.ServeHTTP(w, r)
	})
}
