package repo

import (
	"sync"

	"github.com/GolferGeek/predictor-pipeline/core"
	"context"
)

// InMemoryRepos bundles map-backed implementations of every repository
// interface for tests and single-process demos. Each field is its own
// concrete type (Go forbids overloading Create/Update across entity
// types on one receiver). Of the repositories, only the subscription
// repository has a Redis implementation in this package
// (redis_store.go); the rest have only these in-memory ones, per
// spec.md §6's "opaque" storage treatment.
type InMemoryRepos struct {
	TargetRepo      *InMemoryTargetRepo
	PredictorRepo   *InMemoryPredictorRepo
	PredictionRepo  *InMemoryPredictionRepo
	SignalRepo      *InMemorySignalRepo
	AnalystRepo     *InMemoryAnalystRepo
	SnapshotRepo    *InMemorySnapshotRepo
	TargetSnapRepo  *InMemoryTargetSnapshotRepo
}

// NewInMemoryRepos creates an empty set of in-memory repositories.
func NewInMemoryRepos() *InMemoryRepos {
	return &InMemoryRepos{
		TargetRepo:     &InMemoryTargetRepo{data: make(map[string]Target)},
		PredictorRepo:  &InMemoryPredictorRepo{data: make(map[string]Predictor)},
		PredictionRepo: &InMemoryPredictionRepo{data: make(map[string]Prediction)},
		SignalRepo:     &InMemorySignalRepo{},
		AnalystRepo: &InMemoryAnalystRepo{
			analysts: make(map[string]Analyst),
			versions: make(map[string]map[ForkType]AnalystContextVersion),
		},
		SnapshotRepo:   &InMemorySnapshotRepo{},
		TargetSnapRepo: &InMemoryTargetSnapshotRepo{data: make(map[string]TargetSnapshot)},
	}
}

// --- TargetRepository --------------------------------------------------

type InMemoryTargetRepo struct {
	mu   sync.Mutex
	data map[string]Target
}

func (r *InMemoryTargetRepo) Seed(t Target) Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = NewID()
	}
	r.data[t.ID] = t
	return t
}

func (r *InMemoryTargetRepo) FindByIDOrThrow(ctx context.Context, id string) (Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return Target{}, core.ErrTargetNotFound
	}
	return t, nil
}

func (r *InMemoryTargetRepo) FindAllActive(ctx context.Context) ([]Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Target
	for _, t := range r.data {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *InMemoryTargetRepo) FindBySymbol(ctx context.Context, org, symbol string) (Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.data {
		if t.Symbol == symbol {
			return t, nil
		}
	}
	return Target{}, core.ErrTargetNotFound
}

func (r *InMemoryTargetRepo) FindActiveByUniverse(ctx context.Context, universeID string) ([]Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Target
	for _, t := range r.data {
		if t.UniverseID == universeID && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

var _ TargetRepository = (*InMemoryTargetRepo)(nil)

// --- PredictorRepository -----------------------------------------------

type InMemoryPredictorRepo struct {
	mu   sync.Mutex
	data map[string]Predictor
}

func (r *InMemoryPredictorRepo) Create(ctx context.Context, p Predictor) (Predictor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = NewID()
	}
	r.data[p.ID] = p
	return p, nil
}

func (r *InMemoryPredictorRepo) FindActiveByTarget(ctx context.Context, targetID string) ([]Predictor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Predictor
	for _, p := range r.data {
		if p.TargetID == targetID && p.Status == PredictorActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryPredictorRepo) ExpireOldPredictors(ctx context.Context, targetID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := core.RealClock{}.Now()
	count := 0
	for id, p := range r.data {
		if p.TargetID == targetID && p.Status == PredictorActive && now.After(p.ExpiresAt) {
			p.Status = PredictorExpired
			r.data[id] = p
			count++
		}
	}
	return count, nil
}

func (r *InMemoryPredictorRepo) ConsumePredictor(ctx context.Context, id, predictionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return core.ErrPredictorNotFound
	}
	if p.Status == PredictorConsumed && p.ConsumedByPredictionID == predictionID {
		return nil // idempotent
	}
	p.Status = PredictorConsumed
	p.ConsumedByPredictionID = predictionID
	r.data[id] = p
	return nil
}

func (r *InMemoryPredictorRepo) FindByIDs(ctx context.Context, ids []string) ([]Predictor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Predictor, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.data[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryPredictorRepo) CreateTestCopy(ctx context.Context, p Predictor, scenarioID string) (Predictor, error) {
	cp := p
	cp.ID = NewID()
	return r.Create(ctx, cp)
}

var _ PredictorRepository = (*InMemoryPredictorRepo)(nil)

// --- PredictionRepository -----------------------------------------------

type InMemoryPredictionRepo struct {
	mu   sync.Mutex
	data map[string]Prediction
}

func (r *InMemoryPredictionRepo) Create(ctx context.Context, p Prediction) (Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = NewID()
	}
	r.data[p.ID] = p
	return p, nil
}

func (r *InMemoryPredictionRepo) Update(ctx context.Context, id string, patch func(*Prediction)) (Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return Prediction{}, core.ErrPredictionNotFound
	}
	patch(&p)
	r.data[id] = p
	return p, nil
}

func (r *InMemoryPredictionRepo) UpdateAnalystEnsemble(ctx context.Context, id string, ensemble AnalystEnsemble) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return core.ErrPredictionNotFound
	}
	p.AnalystEnsemble = ensemble
	r.data[id] = p
	return nil
}

func (r *InMemoryPredictionRepo) FindByTarget(ctx context.Context, targetID string, status *PredictionStatus, opts PredictionFindOptions) ([]Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Prediction
	for _, p := range r.data {
		if p.TargetID != targetID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

var _ PredictionRepository = (*InMemoryPredictionRepo)(nil)

// --- SignalRepository ----------------------------------------------------

type InMemorySignalRepo struct {
	mu   sync.Mutex
	data []Signal
}

func (r *InMemorySignalRepo) Create(ctx context.Context, s Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, s)
	return nil
}

func (r *InMemorySignalRepo) FindByTarget(ctx context.Context, targetID string) ([]Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Signal
	for _, s := range r.data {
		if s.TargetID == targetID {
			out = append(out, s)
		}
	}
	return out, nil
}

var _ SignalRepository = (*InMemorySignalRepo)(nil)

// --- AnalystRepository -----------------------------------------------

type InMemoryAnalystRepo struct {
	mu       sync.Mutex
	analysts map[string]Analyst
	versions map[string]map[ForkType]AnalystContextVersion
}

func (r *InMemoryAnalystRepo) Seed(a Analyst) Analyst {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = NewID()
	}
	r.analysts[a.ID] = a
	return a
}

func (r *InMemoryAnalystRepo) GetActiveAnalysts(ctx context.Context, targetID string) ([]Analyst, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Analyst, 0, len(r.analysts))
	for _, a := range r.analysts {
		out = append(out, a)
	}
	return out, nil
}

func (r *InMemoryAnalystRepo) GetCurrentContextVersion(ctx context.Context, analystID string, fork ForkType) (AnalystContextVersion, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byFork, ok := r.versions[analystID]
	if !ok {
		return AnalystContextVersion{}, false, nil
	}
	v, ok := byFork[fork]
	return v, ok, nil
}

func (r *InMemoryAnalystRepo) GetAllCurrentContextVersions(ctx context.Context, fork ForkType) (map[string]AnalystContextVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]AnalystContextVersion)
	for analystID, byFork := range r.versions {
		if v, ok := byFork[fork]; ok {
			out[analystID] = v
		}
	}
	return out, nil
}

func (r *InMemoryAnalystRepo) CreateContextVersion(ctx context.Context, v AnalystContextVersion) (AnalystContextVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == "" {
		v.ID = NewID()
	}
	byFork, ok := r.versions[v.AnalystID]
	if !ok {
		byFork = make(map[ForkType]AnalystContextVersion)
		r.versions[v.AnalystID] = byFork
	}
	if existing, ok := byFork[v.ForkType]; ok {
		existing.IsCurrent = false
		byFork[v.ForkType] = existing
	}
	v.IsCurrent = true
	byFork[v.ForkType] = v
	return v, nil
}

var _ AnalystRepository = (*InMemoryAnalystRepo)(nil)

// --- SnapshotRepository ----------------------------------------------------

type InMemorySnapshotRepo struct {
	mu   sync.Mutex
	data []PredictionSnapshot
}

func (r *InMemorySnapshotRepo) Create(ctx context.Context, snap PredictionSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, snap)
	return nil
}

func (r *InMemorySnapshotRepo) All() []PredictionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PredictionSnapshot(nil), r.data...)
}

var _ SnapshotRepository = (*InMemorySnapshotRepo)(nil)

// --- TargetSnapshotRepository -----------------------------------------

type InMemoryTargetSnapshotRepo struct {
	mu   sync.Mutex
	data map[string]TargetSnapshot
}

func (r *InMemoryTargetSnapshotRepo) Seed(s TargetSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.TargetID] = s
}

func (r *InMemoryTargetSnapshotRepo) Latest(ctx context.Context, targetID string) (TargetSnapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[targetID]
	return s, ok, nil
}

var _ TargetSnapshotRepository = (*InMemoryTargetSnapshotRepo)(nil)
