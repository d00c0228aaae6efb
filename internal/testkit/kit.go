// Package testkit provides deterministic in-memory implementations of the
// application ports for tests: a hash-seeded RNG, a canned posterior sampler
// and a map-backed prior store.
package testkit

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"goprior/adapters/rng"
	"goprior/domain/core"
	"goprior/domain/mixture"
	"goprior/ports"
)

// NewSeededRNG returns the deterministic RNG port used throughout the tests;
// it is the production adapter, which is already fully reproducible.
func NewSeededRNG() ports.RNGPort {
	return rng.NewSeeded()
}

// StubSampler implements ports.PosteriorSampler with a fixed result or error
type StubSampler struct {
	Result *ports.SampleResult
	Err    error

	mu       sync.Mutex
	requests []ports.SampleRequest
}

// Sample records the request and returns the canned result
func (s *StubSampler) Sample(_ context.Context, req ports.SampleRequest) (*ports.SampleResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

// Requests returns a copy of the requests seen so far
func (s *StubSampler) Requests() []ports.SampleRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.SampleRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// DrawsFrom samples n predictive draws from a mixture for use as a canned
// sampler result.
func DrawsFrom(m mixture.Mixture, n int, seed int64) []float64 {
	return m.SampleN(rand.New(rand.NewSource(seed)), n)
}

// InMemoryPriorStore implements ports.PriorStore with mutex-guarded maps
type InMemoryPriorStore struct {
	mu       sync.RWMutex
	priors   map[core.PriorID]ports.StoredPrior
	analyses map[core.AnalysisID]ports.AnalysisRecord
}

// NewInMemoryPriorStore creates an empty in-memory store
func NewInMemoryPriorStore() *InMemoryPriorStore {
	return &InMemoryPriorStore{
		priors:   make(map[core.PriorID]ports.StoredPrior),
		analyses: make(map[core.AnalysisID]ports.AnalysisRecord),
	}
}

// SavePrior stores or replaces a prior
func (s *InMemoryPriorStore) SavePrior(_ context.Context, prior ports.StoredPrior) error {
	if prior.ID == "" {
		return core.NewDomainError("store", "prior id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priors[prior.ID] = prior
	return nil
}

// GetPrior retrieves a prior by id
func (s *InMemoryPriorStore) GetPrior(_ context.Context, id core.PriorID) (*ports.StoredPrior, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prior, ok := s.priors[id]
	if !ok {
		return nil, fmt.Errorf("prior %s: %w", id, core.ErrPriorNotFound)
	}
	return &prior, nil
}

// ListPriorsByFamily returns stored priors of one family, newest first
func (s *InMemoryPriorStore) ListPriorsByFamily(_ context.Context, family mixture.Family) ([]ports.StoredPrior, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ports.StoredPrior
	for _, prior := range s.priors {
		if prior.Record.Family == family.String() {
			out = append(out, prior)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].CreatedAt.Before(out[i].CreatedAt)
	})
	return out, nil
}

// SaveAnalysis stores or replaces an analysis audit record
func (s *InMemoryPriorStore) SaveAnalysis(_ context.Context, record ports.AnalysisRecord) error {
	if record.ID == "" {
		return core.NewDomainError("store", "analysis id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[record.ID] = record
	return nil
}

// GetAnalysis retrieves an analysis record by id
func (s *InMemoryPriorStore) GetAnalysis(_ context.Context, id core.AnalysisID) (*ports.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.analyses[id]
	if !ok {
		return nil, fmt.Errorf("analysis %s: %w", id, core.ErrAnalysisNotFound)
	}
	return &record, nil
}

// DeletePrior removes a prior; deleting an unknown id is an error
func (s *InMemoryPriorStore) DeletePrior(_ context.Context, id core.PriorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.priors[id]; !ok {
		return fmt.Errorf("prior %s: %w", id, core.ErrPriorNotFound)
	}
	delete(s.priors, id)
	return nil
}
