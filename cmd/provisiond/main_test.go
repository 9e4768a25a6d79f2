package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/mautichost/provisiond/internal/adapter/fsm"
	"github.com/mautichost/provisiond/internal/adapter/sqlite"
	"github.com/mautichost/provisiond/internal/app"
	"github.com/mautichost/provisiond/internal/domain"

	handler "github.com/mautichost/provisiond/internal/adapter/http"
)

// testPublisher is a local EventPublisher for the smoke test.
// The smoke test verifies HTTP wiring, not River.
type testPublisher struct{}

func (testPublisher) Publish(_ context.Context, _ domain.EventType, _ domain.Tenant, _ string) error {
	return nil
}

// testSubmitter accepts every stack without talking to a control plane.
type testSubmitter struct{}

func (testSubmitter) CreateStack(_ context.Context, name, _ string) (domain.Stack, error) {
	return domain.Stack{ID: 1, Name: name}, nil
}

func (testSubmitter) GetStack(_ context.Context, _ string) (*domain.Stack, error) {
	return nil, nil
}

func (testSubmitter) DeleteStack(_ context.Context, _ int64) error {
	return nil
}

// TestSmoke wires the full stack the way main does (minus river and otel)
// and provisions one tenant end to end.
func TestSmoke(t *testing.T) {
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := app.NewProvisioningService(
		repo,
		sqlite.NewEventRepository(repo.DB()),
		testPublisher{},
		fsm.New(),
		testSubmitter{},
		app.Config{
			TraefikNetwork:       "traefik-public",
			CertResolver:         "letsencrypt",
			DefaultMauticVersion: "5.2.4",
		},
	)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("provisiond", "0.1.0"))
	handler.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		srv.URL+"/api/v1/tenants",
		strings.NewReader(`{"name": "Smoke Test", "domain": "smoke.example.com"}`))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var body struct {
		Tenant struct {
			Status string `json:"status"`
		} `json:"tenant"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Tenant.Status != "active" {
		t.Errorf("tenant status = %q, want active", body.Tenant.Status)
	}
}
