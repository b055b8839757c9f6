package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Contexts is the list of texts to embed. On the wire it is either a single
// JSON string or an array of strings; a single string decodes to one element.
type Contexts []string

// UnmarshalJSON accepts a string, an array of strings, or null.
func (c *Contexts) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Contexts{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("contexts must be a string or an array of strings: %w", err)
	}
	*c = list
	return nil
}

// EmbeddingRequest is the body of POST|GET /embedding.
type EmbeddingRequest struct {
	// Text or list of texts to embed.
	// example: ["hello","world"]
	Contexts Contexts `json:"contexts" swaggertype:"array,string" example:"hello,world"`
	// Alias or canonical name of the model to use.
	// example: bge_small_en_v1.5
	ModelName string `json:"model_name" example:"bge_small_en_v1.5"`
}

// EmbeddingResponse is returned by /embedding. On failure Status carries the
// error code and EmbeddingRes is an empty array (never null).
type EmbeddingResponse struct {
	// Result code mirroring the HTTP status.
	// example: 200
	Status int `json:"status" example:"200"`
	// One vector per input text, in input order.
	EmbeddingRes [][]float64 `json:"embedding_res"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// example: 200
	Status int `json:"status" example:"200"`
	// example: service is healthy!
	Message string `json:"message" example:"service is healthy!"`
}

// ErrorResponse is a consistent JSON error payload for non-embedding endpoints.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelStatus summarizes one registered model for /status.
type ModelStatus struct {
	// example: bge_small_en_v1.5
	Alias string `json:"alias" example:"bge_small_en_v1.5"`
	// example: bge-small-en-v1.5
	Name string `json:"name" example:"bge-small-en-v1.5"`
	// example: onnx
	Backend string `json:"backend" example:"onnx"`
	// Compute device chosen at load time (cpu or cuda).
	// example: cpu
	Device string `json:"device,omitempty" example:"cpu"`
	// Whether the model loaded and is serving.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Load failure message, if any.
	LastError string `json:"last_error,omitempty"`
	// Embedding dimensionality reported by the backend.
	// example: 384
	Dimensions int `json:"dimensions,omitempty" example:"384"`
	// Time spent loading, in milliseconds.
	// example: 850
	LoadMillis int64 `json:"load_ms" example:"850"`
	// Requests waiting for this model.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Requests currently executing on this model (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Models []ModelStatus `json:"models"`
	// Number of models loaded.
	// example: 2
	Loaded int `json:"loaded" example:"2"`
	// Number of models that failed to load.
	// example: 1
	Failed int `json:"failed" example:"1"`
	// Whether the load pass has completed.
	// example: true
	Ready bool `json:"ready" example:"true"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
