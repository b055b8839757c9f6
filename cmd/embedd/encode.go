package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"embedd/pkg/types"
)

// runEncode loads only the requested model, encodes args once and prints the
// same envelope /embedding returns.
func runEncode(cmd *cobra.Command, o *options, model string, texts []string) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	if model == "" {
		model = cfg.DefaultModel
	}
	if model == "" {
		return fmt.Errorf("--model is required")
	}
	log, logCloser, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	descs, err := cfg.Descriptors()
	if err != nil {
		return err
	}
	var picked []types.Model
	for _, d := range descs {
		if d.Alias == model || d.Name == model {
			picked = append(picked, d)
			break
		}
	}
	if len(picked) == 0 {
		return fmt.Errorf("unknown model: %s", model)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log, picked)
	if err != nil {
		return err
	}
	defer a.close(ctx)
	if err := a.reg.LoadAll(ctx); err != nil {
		return err
	}
	if st := a.reg.Statuses(); len(st) == 1 && !st[0].Loaded {
		return fmt.Errorf("model %s failed to load: %s", model, st[0].LastError)
	}
	vecs, err := a.svc.Encode(ctx, texts, model)
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(types.EmbeddingResponse{Status: http.StatusOK, EmbeddingRes: vecs})
}
