package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	database Pinger
	redis    Pinger
	gateways func() []string
	started  time.Time
}

func NewHealthHandler(database, redis Pinger, gateways func() []string) *HealthHandler {
	return &HealthHandler{
		database: database,
		redis:    redis,
		gateways: gateways,
		started:  time.Now(),
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	// Criar contexto com timeout curto para health checks
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := struct {
		Status    string   `json:"status"`
		Time      string   `json:"time"`
		Database  string   `json:"database"`
		Redis     string   `json:"redis"`
		Gateways  []string `json:"gateways"`
		Uptime    string   `json:"uptime"`
		GoVersion string   `json:"go_version"`
	}{
		Status:    "ok",
		Time:      time.Now().UTC().Format(time.RFC3339),
		Database:  "connected",
		Redis:     "connected",
		Gateways:  h.gateways(),
		Uptime:    fmt.Sprintf("%v", time.Since(h.started).Round(time.Second)),
		GoVersion: runtime.Version(),
	}

	if !probe(ctx, h.database) {
		health.Status = "degraded"
		health.Database = "error"
	}
	if !probe(ctx, h.redis) {
		health.Status = "degraded"
		health.Redis = "error"
	}

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}

func probe(ctx context.Context, p Pinger) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return p.Ping(ctx) == nil
}
