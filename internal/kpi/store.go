// Package kpi ingests business metrics from external providers on a fixed
// schedule. KPI state is deliberately disjoint from alert state: the two
// never share a lock or an ordering dependency.
package kpi

import (
	"sync"
	"time"

	"github.com/vantagehq/vantage/pkg/models"
)

// Store holds the latest KPI values.
type Store struct {
	mu         sync.RWMutex
	kpis       map[string]models.KPI
	lastUpdate time.Time
}

// NewStore returns an empty KPI store.
func NewStore() *Store {
	return &Store{kpis: make(map[string]models.KPI)}
}

// Set upserts a KPI value.
func (s *Store) Set(key string, kpi models.KPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kpis[key] = kpi
	s.lastUpdate = kpi.LastUpdated
}

// Get returns a single KPI.
func (s *Store) Get(key string) (models.KPI, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kpi, ok := s.kpis[key]
	return kpi, ok
}

// Snapshot returns a copy of all current KPIs.
func (s *Store) Snapshot() map[string]models.KPI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.KPI, len(s.kpis))
	for k, v := range s.kpis {
		out[k] = v
	}
	return out
}

// LastUpdate reports when any KPI last changed.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}
