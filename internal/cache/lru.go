package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRU is an in-process cache bounded by entry count, with optional TTL.
type LRU struct {
	lru *expirable.LRU[string, []float32]
}

// NewLRU creates a cache holding at most size vectors. ttl <= 0 disables expiry.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRU{lru: expirable.NewLRU[string, []float32](size, nil, ttl)}
}

func (c *LRU) Get(_ context.Context, model, text string) ([]float32, bool) {
	v, ok := c.lru.Get(Key("", model, text))
	if !ok {
		return nil, false
	}
	return clone(v), true
}

func (c *LRU) Set(_ context.Context, model, text string, vec []float32) {
	c.lru.Add(Key("", model, text), clone(vec))
}

// Len reports the number of cached vectors.
func (c *LRU) Len() int { return c.lru.Len() }
