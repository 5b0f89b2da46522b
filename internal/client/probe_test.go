package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/models"
)

func testAccount(baseURL string) models.Account {
	return models.Account{
		ID:              "acc-test",
		EndpointRegion:  models.EndpointRegionEU,
		BaseURLOverride: baseURL,
	}
}

func TestProberProbeMapsAvailabilityByFingerprint(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		rows := []availabilityRow{
			{
				PlanCode: "24sk01",
				Fqn:      "24sk01.ram-64g",
				Datacenters: []struct {
					Datacenter   string `json:"datacenter"`
					Availability string `json:"availability"`
				}{
					{Datacenter: "gra", Availability: "high"},
					{Datacenter: "sbg", Availability: "unavailable"},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer server.Close()

	pool := NewPool(5*time.Second, zerolog.Nop())
	prober := NewProber(pool)
	account := testAccount(server.URL)

	states, err := prober.Probe(context.Background(), account, "24sk01", []string{"ram-64g"}, []string{"gra", "sbg", "rbx"})
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if states["gra"] != models.AvailabilityAvailable {
		t.Errorf("expected gra available, got %v", states["gra"])
	}
	if states["sbg"] != models.AvailabilityUnavailable {
		t.Errorf("expected sbg unavailable, got %v", states["sbg"])
	}
	if states["rbx"] != models.AvailabilityUnknown {
		t.Errorf("expected rbx unknown (absent from response), got %v", states["rbx"])
	}
	if requests != 1 {
		t.Fatalf("expected exactly one upstream request, got %d", requests)
	}
}

func TestProberProbeServesSecondCallFromCache(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_ = json.NewEncoder(w).Encode([]availabilityRow{})
	}))
	defer server.Close()

	pool := NewPool(5*time.Second, zerolog.Nop())
	prober := NewProber(pool)
	account := testAccount(server.URL)

	var hits, misses int
	prober.OnCacheEvent(func() { hits++ }, func() { misses++ })

	if _, err := prober.Probe(context.Background(), account, "24sk01", nil, []string{"gra"}); err != nil {
		t.Fatalf("first probe failed: %v", err)
	}
	if _, err := prober.Probe(context.Background(), account, "24sk01", nil, []string{"gra"}); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}

	if requests != 1 {
		t.Fatalf("expected cache to serve second call without a new request, got %d requests", requests)
	}
	if misses != 1 || hits != 1 {
		t.Fatalf("expected exactly one miss and one hit, got misses=%d hits=%d", misses, hits)
	}
}

func TestOptionsFromFqn(t *testing.T) {
	if got := optionsFromFqn("24sk01.ram-64g.raid-1"); len(got) != 2 || got[0] != "ram-64g" || got[1] != "raid-1" {
		t.Fatalf("unexpected options: %v", got)
	}
	if got := optionsFromFqn("24sk01"); got != nil {
		t.Fatalf("expected nil options for bare plan code, got %v", got)
	}
}
