package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/licita/internal/embedding"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/textnorm"
	"github.com/hyperjump/licita/internal/vector"
	"github.com/hyperjump/licita/pkg/utils"
)

// ErrNoSource is returned by Trigger when the builder has no supplier source.
var ErrNoSource = errors.New("no supplier source configured")

// SupplierSource loads the current supplier corpus for asynchronous rebuilds.
type SupplierSource func(ctx context.Context) ([]models.SupplierProfile, error)

// Observer receives rebuild lifecycle events, e.g. for metrics.
type Observer interface {
	RebuildStarted()
	RebuildFinished(status string, elapsed time.Duration, suppliers int)
}

// JobState is the lifecycle state of an asynchronous rebuild.
type JobState string

const (
	JobPending    JobState = "pending"
	JobRunning    JobState = "running"
	JobSucceeded  JobState = "succeeded"
	JobFailed     JobState = "failed"
	JobSuperseded JobState = "superseded"
)

// Job describes one asynchronous rebuild request.
type Job struct {
	Token      string    `json:"token"`
	State      JobState  `json:"state"`
	Source     string    `json:"source,omitempty"`
	Error      string    `json:"error,omitempty"`
	Generation uint64    `json:"generation,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Ticket acknowledges a rebuild request. Coalesced is true when the request was merged into a
// follow-up of a build already in flight.
type Ticket struct {
	Token     string `json:"token"`
	Coalesced bool   `json:"coalesced"`
}

// Status summarises the builder state.
type Status struct {
	Ready       bool      `json:"ready"`
	InProgress  bool      `json:"in_progress"`
	Pending     bool      `json:"pending"`
	Strategy    Strategy  `json:"strategy"`
	Generation  uint64    `json:"generation"`
	Suppliers   int       `json:"suppliers"`
	Vocabulary  int       `json:"vocabulary,omitempty"`
	BuiltAt     time.Time `json:"built_at,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

const maxJobs = 256

// Builder owns the corpus index. Builds are mutually exclusive; readers always see a complete
// snapshot (the previous one until the new one is published).
type Builder struct {
	strategy   Strategy
	normalizer *textnorm.Normalizer
	embedder   embedding.Embedder
	embedCache *vector.MemoryIndex
	vecOpts    VectorizerOptions
	workers    int
	source     SupplierSource
	observer   Observer
	logger     *zap.Logger

	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	buildMu    sync.Mutex

	mu           sync.Mutex
	running      bool
	pending      bool
	runningToken string
	pendingToken string
	// followUp marks a build started from a coalesced request; triggers do not cancel it.
	followUp     bool
	cancel       context.CancelFunc
	idle         chan struct{}
	jobs         map[string]*Job
	jobOrder     []string
	lastSuccess  time.Time
	lastFailure  time.Time
	lastErr      error
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. nil means no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithNormalizer sets the text normalizer.
func WithNormalizer(n *textnorm.Normalizer) Option {
	return func(b *Builder) {
		if n != nil {
			b.normalizer = n
		}
	}
}

// WithEmbedder sets the embedder used by the embedding strategy.
func WithEmbedder(e embedding.Embedder) Option {
	return func(b *Builder) { b.embedder = e }
}

// WithEmbeddingCache sets a content-addressed cache of embeddings shared across builds.
func WithEmbeddingCache(idx *vector.MemoryIndex) Option {
	return func(b *Builder) { b.embedCache = idx }
}

// WithVectorizerOptions sets TF-IDF fitting options.
func WithVectorizerOptions(opts VectorizerOptions) Option {
	return func(b *Builder) { b.vecOpts = opts }
}

// WithWorkers bounds build parallelism. <= 0 means one per CPU.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithSource sets the supplier source used by Trigger.
func WithSource(src SupplierSource) Option {
	return func(b *Builder) { b.source = src }
}

// WithObserver registers a rebuild observer.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// NewBuilder creates a builder for the given strategy. The embedding strategy requires an embedder.
func NewBuilder(strategy Strategy, opts ...Option) (*Builder, error) {
	b := &Builder{
		strategy: strategy,
		vecOpts:  DefaultVectorizerOptions(),
		logger:   zap.NewNop(),
		jobs:     make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.normalizer == nil {
		b.normalizer = textnorm.New()
	}
	switch strategy {
	case StrategyFrequency:
	case StrategyEmbedding:
		if b.embedder == nil {
			return nil, fmt.Errorf("%w: embedding strategy requires an embedder", ErrStrategyUnavailable)
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
	return b, nil
}

// Strategy returns the strategy chosen at construction.
func (b *Builder) Strategy() Strategy { return b.strategy }

// Normalizer returns the normalizer shared by builds and queries.
func (b *Builder) Normalizer() *textnorm.Normalizer { return b.normalizer }

// IsReady reports whether a snapshot has been published.
func (b *Builder) IsReady() bool { return b.current.Load() != nil }

// Snapshot returns the current snapshot, or nil if none is ready.
func (b *Builder) Snapshot() *Snapshot { return b.current.Load() }

// Build synchronously builds a snapshot from suppliers and publishes it. Concurrent calls are
// serialised. An empty corpus yields an empty, ready snapshot.
func (b *Builder) Build(ctx context.Context, suppliers []models.SupplierProfile) (*Snapshot, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	start := time.Now()
	if b.observer != nil {
		b.observer.RebuildStarted()
	}
	snap, err := b.build(ctx, suppliers)
	if err == nil {
		// a cancelled build is never published
		err = ctx.Err()
	}
	if err != nil {
		if b.observer != nil {
			b.observer.RebuildFinished(rebuildStatus(err), time.Since(start), len(suppliers))
		}
		return nil, err
	}
	snap.generation = b.generation.Add(1)
	snap.builtAt = time.Now()
	b.current.Store(snap)
	b.pruneEmbedCache(snap)

	if b.observer != nil {
		b.observer.RebuildFinished("success", time.Since(start), snap.Len())
	}
	b.logger.Info("corpus index built",
		zap.String("strategy", string(b.strategy)),
		zap.Uint64("generation", snap.generation),
		zap.Int("suppliers", snap.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}

// pruneEmbedCache drops cached embeddings whose text no supplier in snap carries anymore.
func (b *Builder) pruneEmbedCache(snap *Snapshot) {
	if b.strategy != StrategyEmbedding || b.embedCache == nil {
		return
	}
	keep := make(map[string]struct{}, len(snap.texts))
	for _, text := range snap.texts {
		if text != "" {
			keep[ContentKey(text)] = struct{}{}
		}
	}
	if n := b.embedCache.Retain(keep); n > 0 {
		b.logger.Debug("embedding cache pruned", zap.Int("removed", n), zap.Int("kept", b.embedCache.Size()))
	}
}

func rebuildStatus(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "error"
}

func (b *Builder) build(ctx context.Context, suppliers []models.SupplierProfile) (*Snapshot, error) {
	// Deduplicate by ID (last wins) and order by ID so the build is independent of input order.
	byID := make(map[string]string, len(suppliers))
	for _, s := range suppliers {
		byID[s.ID] = s.Text
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	normalized := make([]string, len(ids))
	err := utils.ParallelFor(ctx, len(ids), b.workers, func(i int) error {
		normalized[i] = b.normalizer.Normalize(byID[ids[i]])
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		strategy:   b.strategy,
		texts:      make(map[string]string, len(ids)),
		vectors:    make(map[string]Vector, len(ids)),
		embedder:   b.embedder,
		embedCache: b.embedCache,
	}
	for i, id := range ids {
		snap.texts[id] = normalized[i]
	}

	vectors := make([]Vector, len(ids))
	switch b.strategy {
	case StrategyEmbedding:
		err = utils.ParallelFor(ctx, len(ids), b.workers, func(i int) error {
			if normalized[i] == "" {
				vectors[i] = Vector{Dense: []float32{}}
				return nil
			}
			v, err := embedText(ctx, b.embedder, b.embedCache, normalized[i])
			if err != nil {
				return fmt.Errorf("supplier %s: %w", ids[i], err)
			}
			vectors[i] = v
			return nil
		})
	default:
		docs := make([][]string, len(ids))
		for i, text := range normalized {
			docs[i] = strings.Fields(text)
		}
		snap.vectorizer = FitVectorizer(docs, b.vecOpts)
		err = utils.ParallelFor(ctx, len(ids), b.workers, func(i int) error {
			vectors[i] = Vector{Sparse: snap.vectorizer.Transform(docs[i])}
			return nil
		})
	}
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		snap.vectors[id] = vectors[i]
	}
	return snap, nil
}

// Trigger requests an asynchronous rebuild from the configured source. While a build is in
// flight, requests are coalesced into a single follow-up build. A first build is abandoned in
// favour of the follow-up; a follow-up build always runs to completion.
func (b *Builder) Trigger(source string) (Ticket, error) {
	if b.source == nil {
		return Ticket{}, ErrNoSource
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		if b.pending {
			return Ticket{Token: b.pendingToken, Coalesced: true}, nil
		}
		b.pending = true
		b.pendingToken = uuid.New().String()
		b.addJob(b.pendingToken, JobPending, source)
		if b.cancel != nil && !b.followUp {
			b.cancel()
		}
		b.logger.Debug("rebuild coalesced", zap.String("token", b.pendingToken), zap.String("source", source))
		return Ticket{Token: b.pendingToken, Coalesced: true}, nil
	}

	token := uuid.New().String()
	b.addJob(token, JobRunning, source)
	b.startLocked(token, false)
	return Ticket{Token: token}, nil
}

func (b *Builder) startLocked(token string, followUp bool) {
	ctx, cancel := context.WithCancel(context.Background())
	b.running = true
	b.followUp = followUp
	b.runningToken = token
	b.cancel = cancel
	if b.idle == nil {
		b.idle = make(chan struct{})
	}
	if job, ok := b.jobs[token]; ok {
		job.State = JobRunning
	}
	go b.run(ctx, token)
}

func (b *Builder) run(ctx context.Context, token string) {
	b.logger.Info("rebuild started", zap.String("token", token))
	var (
		snap *Snapshot
		err  error
	)
	suppliers, err := b.source(ctx)
	if err != nil {
		err = fmt.Errorf("load suppliers: %w", err)
	} else {
		snap, err = b.Build(ctx, suppliers)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancel = nil

	job := b.jobs[token]
	now := time.Now()
	switch {
	case err == nil:
		b.lastSuccess = now
		b.lastErr = nil
		if job != nil {
			job.State = JobSucceeded
			job.Generation = snap.Generation()
		}
	case errors.Is(err, context.Canceled):
		if job != nil {
			job.State = JobSuperseded
		}
		b.logger.Info("rebuild superseded", zap.String("token", token))
	default:
		b.lastFailure = now
		b.lastErr = err
		if job != nil {
			job.State = JobFailed
			job.Error = err.Error()
		}
		b.logger.Error("rebuild failed", zap.String("token", token), zap.Error(err))
	}
	if job != nil {
		job.FinishedAt = now
	}

	if b.pending {
		b.pending = false
		next := b.pendingToken
		b.pendingToken = ""
		b.startLocked(next, true)
		return
	}
	b.running = false
	b.followUp = false
	b.runningToken = ""
	if b.idle != nil {
		close(b.idle)
		b.idle = nil
	}
}

func (b *Builder) addJob(token string, state JobState, source string) {
	b.jobs[token] = &Job{Token: token, State: state, Source: source, CreatedAt: time.Now()}
	b.jobOrder = append(b.jobOrder, token)
	for len(b.jobOrder) > maxJobs {
		oldest := b.jobOrder[0]
		if j := b.jobs[oldest]; j != nil && (j.State == JobPending || j.State == JobRunning) {
			break
		}
		delete(b.jobs, oldest)
		b.jobOrder = b.jobOrder[1:]
	}
}

// Job returns a copy of the job for token.
func (b *Builder) Job(token string) (Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[token]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Wait blocks until no asynchronous rebuild is running or pending, or ctx is done.
func (b *Builder) Wait(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	ch := b.idle
	b.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a summary of the builder state.
func (b *Builder) Status() Status {
	b.mu.Lock()
	st := Status{
		InProgress:  b.running,
		Pending:     b.pending,
		Strategy:    b.strategy,
		LastSuccess: b.lastSuccess,
		LastFailure: b.lastFailure,
	}
	if b.lastErr != nil {
		st.LastError = b.lastErr.Error()
	}
	b.mu.Unlock()

	if snap := b.current.Load(); snap != nil {
		st.Ready = true
		st.Generation = snap.Generation()
		st.Suppliers = snap.Len()
		st.BuiltAt = snap.BuiltAt()
		if v := snap.Vectorizer(); v != nil {
			st.Vocabulary = v.VocabularySize()
		}
	}
	return st
}

// Close cancels any in-flight rebuild and waits for it to stop.
func (b *Builder) Close(ctx context.Context) error {
	b.mu.Lock()
	b.pending = false
	if b.pendingToken != "" {
		if job := b.jobs[b.pendingToken]; job != nil {
			job.State = JobSuperseded
		}
		b.pendingToken = ""
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	return b.Wait(ctx)
}
