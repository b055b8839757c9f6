// Package service composes the model registry and the encode dispatcher into
// the surface served over HTTP and the CLI.
package service

import (
	"context"
	"time"

	"embedd/internal/dispatch"
	"embedd/internal/registry"
	"embedd/pkg/types"
)

// Service implements httpapi.Service.
type Service struct {
	reg     *registry.Registry
	disp    *dispatch.Dispatcher
	started time.Time
	now     func() time.Time
}

func New(reg *registry.Registry, disp *dispatch.Dispatcher) *Service {
	return &Service{reg: reg, disp: disp, started: time.Now(), now: time.Now}
}

func (s *Service) Encode(ctx context.Context, texts []string, model string) ([][]float64, error) {
	return s.disp.Encode(ctx, texts, model)
}

// AvailableModels returns canonical model name -> loaded.
func (s *Service) AvailableModels() map[string]bool { return s.reg.AvailableModels() }

func (s *Service) ListModels() []types.Model { return s.reg.Descriptors() }

func (s *Service) Ready() bool { return s.reg.Ready() }

func (s *Service) Status() types.StatusResponse {
	sts := s.reg.Statuses()
	models := make([]types.ModelStatus, 0, len(sts))
	for _, st := range sts {
		models = append(models, types.ModelStatus{
			Alias:         st.Alias,
			Name:          st.Name,
			Backend:       st.Backend,
			Device:        st.Device,
			Loaded:        st.Loaded,
			LastError:     st.LastError,
			Dimensions:    st.Dimensions,
			LoadMillis:    st.LoadDuration.Milliseconds(),
			QueueLen:      st.QueueLen,
			Inflight:      st.Inflight,
			MaxQueueDepth: st.MaxQueueDepth,
		})
	}
	loaded, failed := s.reg.Counts()
	now := s.now()
	return types.StatusResponse{
		Models:         models,
		Loaded:         loaded,
		Failed:         failed,
		Ready:          s.reg.Loaded(),
		UptimeSeconds:  int64(now.Sub(s.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}
