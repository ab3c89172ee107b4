package kpi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vantagehq/vantage/internal/config"
	"github.com/vantagehq/vantage/pkg/models"
)

type staticRevenue struct {
	value float64
	err   error
}

func (s staticRevenue) PendingRevenue(context.Context) (float64, error) { return s.value, s.err }

type staticCustomers struct {
	count int
	err   error
}

func (s staticCustomers) ContactCount(context.Context) (int, error) { return s.count, s.err }

func TestPollerRefresh(t *testing.T) {
	t.Run("computes kpis from providers", func(t *testing.T) {
		store := NewStore()
		p := NewPoller(PollerOptions{
			Config:    config.KPIConfig{MonthlyAdSpend: 450000},
			Store:     store,
			Revenue:   staticRevenue{value: 9800000},
			Customers: staticCustomers{count: 1200},
		})
		p.Refresh(context.Background())

		revenue, ok := store.Get("revenue")
		if !ok || revenue.Value != 9800000 {
			t.Errorf("revenue = %+v, want 9800000", revenue)
		}
		cac, ok := store.Get("cac")
		if !ok {
			t.Fatal("cac kpi missing")
		}
		if want := 450000.0 / 1200; cac.Value != want {
			t.Errorf("cac = %v, want %v", cac.Value, want)
		}
		if cac.Status != models.HealthStateHealthy {
			t.Errorf("cac status = %q, want healthy", cac.Status)
		}
		if _, ok := store.Get("churn"); !ok {
			t.Error("churn kpi missing")
		}
	})

	t.Run("cac above threshold warns", func(t *testing.T) {
		store := NewStore()
		p := NewPoller(PollerOptions{
			Config:    config.KPIConfig{MonthlyAdSpend: 600000},
			Store:     store,
			Revenue:   staticRevenue{value: 1},
			Customers: staticCustomers{count: 1000},
		})
		p.Refresh(context.Background())

		cac, _ := store.Get("cac")
		if cac.Status != models.HealthStateWarning {
			t.Errorf("cac status = %q, want warning", cac.Status)
		}
		if cac.Trend != models.TrendUp {
			t.Errorf("cac trend = %q, want up", cac.Trend)
		}
	})

	t.Run("provider failures degrade to fallbacks", func(t *testing.T) {
		store := NewStore()
		p := NewPoller(PollerOptions{
			Config:    config.KPIConfig{MonthlyAdSpend: 450000},
			Store:     store,
			Revenue:   staticRevenue{err: errors.New("stripe 503")},
			Customers: staticCustomers{err: errors.New("hubspot 429")},
		})
		p.Refresh(context.Background())

		revenue, _ := store.Get("revenue")
		if revenue.Value != fallbackRevenue {
			t.Errorf("revenue = %v, want fallback %v", revenue.Value, fallbackRevenue)
		}
		cac, _ := store.Get("cac")
		if want := 450000.0 / fallbackCustomers; cac.Value != want {
			t.Errorf("cac = %v, want fallback-derived %v", cac.Value, want)
		}
	})
}

func TestPollerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("start and stop leave no goroutines", func(t *testing.T) {
		store := NewStore()
		p := NewPoller(PollerOptions{
			Config: config.KPIConfig{
				Enabled:        true,
				PollInterval:   10 * time.Millisecond,
				MonthlyAdSpend: 450000,
			},
			Store:     store,
			Revenue:   staticRevenue{value: 100},
			Customers: staticCustomers{count: 10},
		})

		p.Start(context.Background())
		deadline := time.After(time.Second)
		for {
			if _, ok := store.Get("revenue"); ok {
				break
			}
			select {
			case <-deadline:
				t.Fatal("poller never refreshed the store")
			case <-time.After(5 * time.Millisecond):
			}
		}
		p.Stop()
	})

	t.Run("disabled poller does not start", func(t *testing.T) {
		store := NewStore()
		p := NewPoller(PollerOptions{
			Config: config.KPIConfig{Enabled: false},
			Store:  store,
		})
		p.Start(context.Background())
		p.Stop()
		if _, ok := store.Get("revenue"); ok {
			t.Error("disabled poller refreshed the store")
		}
	})
}

func TestStripeClient(t *testing.T) {
	t.Run("reads pending balance", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/balance" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer sk_test_123" {
				t.Errorf("authorization = %q", r.Header.Get("Authorization"))
			}
			_, _ = w.Write([]byte(`{"pending":[{"amount":1245000000,"currency":"usd"}]}`))
		}))
		defer srv.Close()

		client := NewStripeClient(srv.URL, "sk_test_123", time.Second)
		value, err := client.PendingRevenue(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != 12450000 {
			t.Errorf("revenue = %v, want 12450000", value)
		}
	})

	t.Run("error status propagates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := NewStripeClient(srv.URL, "bad-key", time.Second)
		if _, err := client.PendingRevenue(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestHubSpotClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v3/objects/contacts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"total":1482,"results":[]}`))
	}))
	defer srv.Close()

	client := NewHubSpotClient(srv.URL, "pat-token", time.Second)
	count, err := client.ContactCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1482 {
		t.Errorf("count = %d, want 1482", count)
	}
}
