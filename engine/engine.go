package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/internal/debug"
	"github.com/satishbabariya/relq/query"
	"github.com/satishbabariya/relq/query/cache"
	"github.com/satishbabariya/relq/query/compiler"
	"github.com/satishbabariya/relq/query/parser"
	"github.com/satishbabariya/relq/schema"
	"github.com/satishbabariya/relq/telemetry"
)

const (
	defaultCacheSize = 256
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is the process-wide debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithParallelism materializes up to n tables of a query concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// WithMetrics records executions on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithUpdater enables the write operations u provides.
func WithUpdater(u Updater) Option {
	return func(e *Engine) { e.updater = u }
}

// WithQueryCache sizes the cache of prepared SQL queries. A zero ttl keeps
// entries until they are evicted.
func WithQueryCache(size int, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheSize = size
		e.cacheTTL = ttl
	}
}

// Engine executes queries against a Backend.
type Engine struct {
	backend     Backend
	logger      *slog.Logger
	parallelism int
	pool        *ants.Pool
	metrics     *telemetry.Metrics
	updater     Updater

	cacheSize int
	cacheTTL  time.Duration
	compiled  *cache.LRU[prepared]
	// reads maps a table name to the cached SQL texts reading it.
	readsMu sync.Mutex
	reads   map[string]map[string]struct{}

	closed atomic.Bool
}

// New creates an engine over b.
func New(b Backend, opts ...Option) (*Engine, error) {
	if b == nil {
		return nil, fmt.Errorf("engine: nil backend")
	}
	e := &Engine{
		backend:     b,
		parallelism: 1,
		cacheSize:   defaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = debug.Logger()
	}
	e.reads = make(map[string]map[string]struct{})
	e.compiled = cache.NewLRU[prepared](e.cacheSize, e.cacheTTL, cache.WithEvictCallback(func(sql string, _ prepared) {
		e.forget(sql)
	}))

	if e.parallelism > 1 {
		pool, err := ants.NewPool(e.parallelism, ants.WithPanicHandler(func(v any) {
			e.logger.Error("materialization panicked", "panic", v)
		}))
		if err != nil {
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		e.pool = pool
	}
	return e, nil
}

// Close releases the worker pool. Open data sets stay valid.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.pool != nil {
		e.pool.Release()
	}
	e.compiled.Clear()
	return nil
}

// Backend returns the backend the engine queries.
func (e *Engine) Backend() Backend { return e.backend }

// Schema returns the schema of the backend.
func (e *Engine) Schema(ctx context.Context) (*schema.Schema, error) {
	s, err := e.backend.MainSchema(ctx)
	if err != nil {
		return nil, e.fail("schema", "", err)
	}
	return s, nil
}

// Execute runs q and returns a data set whose header is exactly the SELECT
// list of q. The caller must close it.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (dataset.DataSet, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	log := e.logger.With("execution_id", uuid.NewString())
	start := time.Now()
	ds, path, err := e.execute(ctx, q, log)
	if err != nil {
		e.metrics.ObserveQuery(telemetry.PathFailed, time.Since(start))
		log.Debug("query failed", "query", q.ToSQL(), "error", err)
		return nil, err
	}
	e.metrics.ObserveQuery(path, time.Since(start))
	log.Debug("query executed", "query", q.ToSQL(), "path", path, "duration", time.Since(start))
	return ds, nil
}

// prepared is a compiled query with the schema it was resolved against.
type prepared struct {
	schema *schema.Schema
	query  *compiler.CompiledQuery
}

// Prepare parses sql against the backend schema and compiles it. Prepared
// queries are cached by their text and reused while the backend schema is
// the one they were resolved against.
func (e *Engine) Prepare(ctx context.Context, sql string) (*compiler.CompiledQuery, error) {
	s, err := e.Schema(ctx)
	if err != nil {
		return nil, err
	}
	if p, ok := e.compiled.Get(sql); ok && p.schema == s {
		return p.query, nil
	}
	q, err := parser.Parse(sql, s)
	if err != nil {
		return nil, err
	}
	cq, err := compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	e.remember(sql, q)
	e.compiled.Set(sql, prepared{schema: s, query: cq}, 0)
	return cq, nil
}

// remember indexes sql under every table q reads.
func (e *Engine) remember(sql string, q *query.Query) {
	e.readsMu.Lock()
	defer e.readsMu.Unlock()
	var walk func(q *query.Query)
	walk = func(q *query.Query) {
		for _, f := range q.FromItems() {
			for _, leaf := range f.Leaves() {
				switch {
				case leaf.IsSubQuery():
					walk(leaf.SubQuery)
				case leaf.Table != nil:
					name := leaf.Table.Name()
					if e.reads[name] == nil {
						e.reads[name] = make(map[string]struct{})
					}
					e.reads[name][sql] = struct{}{}
				}
			}
		}
	}
	walk(q)
}

func (e *Engine) forget(sql string) {
	e.readsMu.Lock()
	defer e.readsMu.Unlock()
	for name, texts := range e.reads {
		delete(texts, sql)
		if len(texts) == 0 {
			delete(e.reads, name)
		}
	}
}

// invalidate drops the cached queries reading table.
func (e *Engine) invalidate(table string) {
	e.readsMu.Lock()
	texts := make([]string, 0, len(e.reads[table]))
	for sql := range e.reads[table] {
		texts = append(texts, sql)
	}
	e.readsMu.Unlock()
	for _, sql := range texts {
		e.compiled.Invalidate(sql)
	}
}

// Query prepares sql and executes it with args bound to its parameters.
func (e *Engine) Query(ctx context.Context, sql string, args ...any) (dataset.DataSet, error) {
	cq, err := e.Prepare(ctx, sql)
	if err != nil {
		return nil, err
	}
	return cq.Execute(ctx, e, args...)
}

// CacheStats reports the prepared query cache statistics.
func (e *Engine) CacheStats() cache.Stats {
	return e.compiled.GetStats()
}
