// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/alsrec/internal/cache"
	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/metrics"
	"github.com/tomtom215/alsrec/internal/recommend/als"
	"github.com/tomtom215/alsrec/internal/recommend/storage"
)

// Query operation names used for metrics and cache keys.
const (
	opSimilarItems = "similar_items"
	opRecommend    = "recommend"
)

// Engine trains, publishes and serves ALS models. It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	dataProvider DataProvider
	store        storage.Store

	current atomic.Pointer[Published]

	// trainMu is held for the duration of a training run.
	trainMu sync.Mutex

	statusMu     sync.RWMutex
	training     bool
	lastDuration time.Duration
	lastError    string

	cache *cache.LRU[[]ScoredItem]
}

// NewEngine creates a new recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config: cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
	}
	if cfg.Cache.Enabled {
		e.cache = cache.NewLRU[[]ScoredItem](cfg.Cache.Size, cfg.Cache.TTL)
	}
	return e, nil
}

// SetDataProvider sets the interaction source. Call before Train.
func (e *Engine) SetDataProvider(dp DataProvider) {
	e.dataProvider = dp
}

// SetModelStore enables persistence of published models. Call before Train.
func (e *Engine) SetModelStore(s storage.Store) {
	e.store = s
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Current returns the published model, or nil.
func (e *Engine) Current() *Published {
	return e.current.Load()
}

// Ready reports whether a model is published.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Train runs one training pass and publishes the result. Only one run may be
// active; concurrent calls fail with ErrTrainingInProgress. A failed or
// cancelled run leaves the published model untouched.
func (e *Engine) Train(ctx context.Context) error {
	if !e.trainMu.TryLock() {
		metrics.TrainingRuns.WithLabelValues("skipped").Inc()
		return ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	return e.runTraining(ctx)
}

// StartTraining begins a training run in the background. It returns once the
// run holds the training lock, so a nil error means the run was accepted. The
// channel receives the run's result and is then closed.
func (e *Engine) StartTraining(ctx context.Context) (<-chan error, error) {
	if !e.trainMu.TryLock() {
		metrics.TrainingRuns.WithLabelValues("skipped").Inc()
		return nil, ErrTrainingInProgress
	}
	if e.dataProvider == nil {
		e.trainMu.Unlock()
		return nil, ErrNoDataProvider
	}
	e.setTraining(true)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer e.trainMu.Unlock()
		done <- e.runTraining(ctx)
	}()
	return done, nil
}

// runTraining must be called with trainMu held.
func (e *Engine) runTraining(ctx context.Context) error {
	if e.dataProvider == nil {
		return ErrNoDataProvider
	}

	runID := uuid.NewString()
	ctx = logging.ContextWithTrainingRun(ctx, runID)
	logger := e.logger.With().Str("training_run", runID).Logger()

	start := time.Now()
	e.setTraining(true)
	logger.Info().Msg("starting model training")

	trainCtx, cancel := context.WithTimeout(ctx, e.config.Training.Timeout)
	defer cancel()

	published, err := e.train(trainCtx, logger)
	duration := time.Since(start)
	e.finishTraining(duration, err)
	metrics.RecordTrainingRun(trainingOutcome(err), duration)

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("model training failed")
		return err
	}

	logger.Info().
		Int64("version", published.Version).
		Str("model_id", published.ModelID).
		Int("users", published.Model.NumUsers()).
		Int("items", published.Model.NumItems()).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("model training complete")
	return nil
}

func (e *Engine) train(ctx context.Context, logger zerolog.Logger) (*Published, error) {
	records, err := e.dataProvider.GetInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	metrics.InteractionsLoaded.Set(float64(len(records)))
	if len(records) < e.config.Training.MinInteractions {
		return nil, fmt.Errorf("%w: %d < %d", ErrInsufficientData, len(records), e.config.Training.MinInteractions)
	}

	ds, err := als.BuildDataset(records, e.config.DuplicatePolicy)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}
	logger.Debug().
		Int("records", len(records)).
		Int("users", ds.Users.Len()).
		Int("items", ds.Items.Len()).
		Int("nnz", ds.Matrix.NNZ()).
		Msg("interaction matrix built")

	trainer, err := als.NewTrainer(e.config.ALS, logger)
	if err != nil {
		return nil, err
	}
	trainer.OnRound(func(_ int, loss float64, elapsed time.Duration) {
		metrics.RecordTrainingRound(loss, elapsed)
	})

	model, err := trainer.TrainDataset(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	metrics.SolverFallbacks.Add(float64(model.Stats.Fallbacks))
	if model.Stats.Fallbacks > 0 {
		logger.Warn().Int64("fallbacks", model.Stats.Fallbacks).Msg("cholesky solve failed for some rows, used conjugate gradient")
	}

	version := e.nextVersion(ctx)
	p := newPublished(model, ds.Matrix, version, uuid.NewString(), len(records))
	e.publish(p)

	if e.store != nil {
		if err := e.persist(ctx, p); err != nil {
			logger.Error().Err(err).Int64("version", version).Msg("failed to persist model")
		}
	}
	return p, nil
}

// nextVersion returns one past the highest version published or stored.
func (e *Engine) nextVersion(ctx context.Context) int64 {
	var base int64
	if p := e.current.Load(); p != nil {
		base = p.Version
	}
	if e.store != nil {
		stored, err := e.store.LatestVersion(ctx)
		if err == nil && stored > base {
			base = stored
		}
	}
	return base + 1
}

func (e *Engine) publish(p *Published) {
	e.current.Store(p)
	if e.cache != nil {
		e.cache.Purge()
	}
	metrics.RecordModelPublished(p.Version, p.Model.NumUsers(), p.Model.NumItems(), p.Interactions, p.Model.TrainedAt)
}

func (e *Engine) persist(ctx context.Context, p *Published) error {
	snap, err := p.Model.Snapshot()
	if err != nil {
		return err
	}
	rec := &storage.Record{
		Metadata: storage.Metadata{
			ModelID:            p.ModelID,
			Version:            p.Version,
			TrainedAt:          p.Model.TrainedAt,
			Users:              p.Model.NumUsers(),
			Items:              p.Model.NumItems(),
			Interactions:       p.Interactions,
			Factors:            p.Model.Factors.Dim(),
			TrainingDurationMS: p.Model.Stats.Duration.Milliseconds(),
		},
		Snapshot: snap,
	}
	if err := e.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := e.store.Prune(ctx, e.config.KeepVersions); err != nil {
		return fmt.Errorf("prune models: %w", err)
	}
	return nil
}

// LoadLatest publishes the newest stored model. The interaction matrix used
// for seen-item filtering is rebuilt from the data provider, keeping only
// records whose user and item are known to the stored model.
func (e *Engine) LoadLatest(ctx context.Context) error {
	if e.store == nil {
		return ErrNoModelStore
	}
	rec, err := e.store.Latest(ctx)
	if err != nil {
		return err
	}
	model, err := als.FromSnapshot(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("restore model v%d: %w", rec.Metadata.Version, err)
	}

	var records []als.InteractionRecord
	if e.dataProvider != nil {
		all, err := e.dataProvider.GetInteractions(ctx)
		if err != nil {
			e.logger.Warn().Err(err).Msg("could not load interactions for restored model; seen-item filtering disabled")
		}
		for _, r := range all {
			if model.Users.Contains(r.UserID) && model.Items.Contains(r.ItemID) {
				records = append(records, r)
			}
		}
	}
	matrix, err := als.BuildMatrix(records, model.Users, model.Items, e.config.DuplicatePolicy)
	if err != nil {
		return fmt.Errorf("rebuild interactions: %w", err)
	}

	p := newPublished(model, matrix, rec.Metadata.Version, rec.Metadata.ModelID, len(records))
	p.Restored = true
	e.publish(p)

	e.logger.Info().
		Int64("version", p.Version).
		Str("model_id", p.ModelID).
		Time("trained_at", model.TrainedAt).
		Int("interactions", len(records)).
		Msg("restored model from store")
	return nil
}

// SimilarItems returns up to k items similar to itemID. The queried item is
// always first. normalized selects cosine similarity over raw dot products.
func (e *Engine) SimilarItems(ctx context.Context, itemID int64, k int, normalized bool) ([]ScoredItem, error) {
	start := time.Now()
	res, err := e.similarItems(ctx, itemID, k, normalized)
	metrics.RecordQuery(opSimilarItems, time.Since(start), err)
	return res, err
}

func (e *Engine) similarItems(ctx context.Context, itemID int64, k int, normalized bool) ([]ScoredItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := e.current.Load()
	if p == nil {
		return nil, als.ErrNotTrained
	}
	k = e.config.clampK(k)

	key := cache.GenerateKey(opSimilarItems, struct {
		Version    int64
		Item       int64
		K          int
		Normalized bool
	}{p.Version, itemID, k, normalized})

	return e.cached(key, func() ([]ScoredItem, error) {
		item, err := p.Model.Items.ToDense(itemID)
		if err != nil {
			return nil, err
		}
		scored, err := p.similarity.SimilarItems(item, k, normalized)
		if err != nil {
			return nil, err
		}
		return toRaw(p.Model.Items, scored)
	})
}

// Recommend returns up to k items for userID ranked by predicted preference.
func (e *Engine) Recommend(ctx context.Context, userID int64, k int, opts RecommendOptions) ([]ScoredItem, error) {
	start := time.Now()
	res, err := e.recommend(ctx, userID, k, opts)
	metrics.RecordQuery(opRecommend, time.Since(start), err)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Int64("user_id", userID).Msg("recommend failed")
	}
	return res, err
}

//nolint:gocritic // opts passed by value for immutability
func (e *Engine) recommend(ctx context.Context, userID int64, k int, opts RecommendOptions) ([]ScoredItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := e.current.Load()
	if p == nil {
		return nil, als.ErrNotTrained
	}
	k = e.config.clampK(k)

	key := cache.GenerateKey(opRecommend, struct {
		Version int64
		User    int64
		K       int
		Opts    RecommendOptions
	}{p.Version, userID, k, opts})

	return e.cached(key, func() ([]ScoredItem, error) {
		user, err := p.Model.Users.ToDense(userID)
		if err != nil {
			return nil, err
		}
		rows, err := p.Matrix.UserRows(user)
		if err != nil {
			return nil, err
		}
		alsOpts := als.RecommendOptions{FilterAlreadyInteracted: opts.FilterSeen}
		for _, raw := range opts.Exclude {
			if i, err := p.Model.Items.ToDense(raw); err == nil {
				alsOpts.ExcludeItems = append(alsOpts.ExcludeItems, i)
			}
		}
		scored, err := p.recommender.Recommend(user, rows, k, alsOpts)
		if err != nil {
			return nil, err
		}
		return toRaw(p.Model.Items, scored)
	})
}

// cached returns the cached result for key or computes and stores it.
// Errors are not cached.
func (e *Engine) cached(key string, compute func() ([]ScoredItem, error)) ([]ScoredItem, error) {
	if e.cache == nil {
		return compute()
	}
	if res, ok := e.cache.Get(key); ok {
		metrics.RecordCacheLookup(true)
		return res, nil
	}
	metrics.RecordCacheLookup(false)
	res, err := compute()
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, res)
	return res, nil
}

func toRaw(items *als.IndexMapper[int64], scored []als.Scored) ([]ScoredItem, error) {
	out := make([]ScoredItem, len(scored))
	for n, s := range scored {
		id, err := items.ToRaw(s.Index)
		if err != nil {
			return nil, err
		}
		out[n] = ScoredItem{ItemID: id, Score: s.Score}
	}
	return out, nil
}

// Status returns the current training and model state.
func (e *Engine) Status() TrainingStatus {
	e.statusMu.RLock()
	st := TrainingStatus{
		IsTraining:             e.training,
		LastTrainingDurationMS: e.lastDuration.Milliseconds(),
		LastError:              e.lastError,
	}
	e.statusMu.RUnlock()

	p := e.current.Load()
	if p == nil {
		return st
	}
	st.Trained = true
	st.ModelVersion = p.Version
	st.ModelID = p.ModelID
	st.Restored = p.Restored
	st.LastTrainedAt = p.Model.TrainedAt
	st.UserCount = p.Model.NumUsers()
	st.ItemCount = p.Model.NumItems()
	st.InteractionCount = p.Interactions
	st.NNZ = p.Matrix.NNZ()
	st.Factors = p.Model.Factors.Dim()
	st.Rounds = p.Model.Stats.Rounds
	st.SolverFallbacks = p.Model.Stats.Fallbacks
	if loss := p.Model.Stats.FinalLoss(); !math.IsNaN(loss) && !math.IsInf(loss, 0) {
		st.FinalLoss = &loss
	}
	return st
}

func (e *Engine) setTraining(on bool) {
	e.statusMu.Lock()
	e.training = on
	e.statusMu.Unlock()
}

func (e *Engine) finishTraining(d time.Duration, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	e.training = false
	e.lastDuration = d
	e.lastError = ""
	if err != nil {
		e.lastError = err.Error()
	}
}

func trainingOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrInsufficientData):
		return "skipped"
	default:
		return "error"
	}
}
