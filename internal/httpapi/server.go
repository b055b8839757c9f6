package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"embedd/internal/registry"
	"embedd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Encode(ctx context.Context, texts []string, model string) ([][]float64, error)
	AvailableModels() map[string]bool
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the HTTP router over svc.
func NewMux(svc Service, opts Options) http.Handler {
	opts = opts.withDefaults()
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if opts.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORS.Origins,
			AllowedMethods: opts.CORS.Methods,
			AllowedHeaders: opts.CORS.Headers,
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)

	embed := embeddingHandler(svc, opts)
	r.Group(func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			r.Use(newClientLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware)
		}
		r.Post("/embedding", embed)
		r.Get("/embedding", embed)
	})

	r.Get("/get_available_models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.AvailableModels())
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: http.StatusOK, Message: "service is healthy!"})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"models": svc.ListModels()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	MountSwagger(r)
	return r
}

// embeddingHandler serves POST|GET /embedding. Every outcome is an embedding
// envelope; failures carry an empty result.
//
// @Summary      Embed texts
// @Description  Encodes one or more texts with the named model.
// @Tags         embedding
// @Accept       json
// @Produce      json
// @Param        request  body      types.EmbeddingRequest  true  "Texts and model"
// @Success      200      {object}  types.EmbeddingResponse
// @Failure      400      {object}  types.EmbeddingResponse
// @Failure      429      {object}  types.EmbeddingResponse  "rate limited"
// @Router       /embedding [post]
func embeddingHandler(svc Service, opts Options) http.HandlerFunc {
	rl := newRequestLogger(opts.Logger, opts.RequestLog)
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := rl.level(r)

		req, err := decodeEmbeddingRequest(w, r, opts.MaxBodyBytes)
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, nil)
			rl.end(r, lvl, encodeLog{status: http.StatusBadRequest, start: start, err: err})
			return
		}
		rl.start(r, lvl, req.ModelName, len(req.Contexts))

		ctx, release := withShutdown(opts.BaseContext, r.Context())
		defer release()

		vecs, err := svc.Encode(ctx, req.Contexts, req.ModelName)
		entry := encodeLog{model: req.ModelName, texts: len(req.Contexts), start: start, err: err}
		if err != nil {
			// Client went away; nobody is left to answer.
			if r.Context().Err() != nil {
				return
			}
			// A busy model answers like any other failure; only the metric tells them apart.
			if registry.IsTooBusy(err) {
				IncrementBackpressure("queue")
			}
			entry.status = http.StatusBadRequest
			writeEnvelope(w, entry.status, nil)
			rl.end(r, lvl, entry)
			return
		}
		entry.status = http.StatusOK
		writeEnvelope(w, http.StatusOK, vecs)
		rl.end(r, lvl, entry)
	}
}

// decodeEmbeddingRequest reads the JSON body. A GET without a body may pass
// contexts and model_name as query parameters instead. Empty contexts are left
// for the encoder to reject.
func decodeEmbeddingRequest(w http.ResponseWriter, r *http.Request, limit int64) (types.EmbeddingRequest, error) {
	var req types.EmbeddingRequest
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(&req)
	switch {
	case errors.Is(err, io.EOF) && r.Method == http.MethodGet:
		q := r.URL.Query()
		req.Contexts = types.Contexts(q["contexts"])
		req.ModelName = q.Get("model_name")
	case err != nil:
		return req, err
	}
	req.ModelName = strings.TrimSpace(req.ModelName)
	return req, nil
}
