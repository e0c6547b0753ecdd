package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi/preview1"
)

// DefaultChainName names the chain directory, /opt/oasis, when no other
// name is configured.
const DefaultChainName = "oasis"

// Config holds configuration for runtime creation
type Config struct {
	// ChainName is the directory under /opt the chain root is mounted at.
	ChainName string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// Interpreter selects the interpreter instead of the compiler. Startup
	// is faster, execution slower.
	Interpreter bool

	// Metrics counts host calls when set.
	Metrics *preview1.Metrics
}

// Option configures a Runtime.
type Option func(*Config)

// WithChainName sets the chain directory name.
func WithChainName(name string) Option {
	return func(c *Config) { c.ChainName = name }
}

// WithMemoryLimitPages caps contract memory.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *Config) { c.MemoryLimitPages = pages }
}

// WithInterpreter selects the wazero interpreter.
func WithInterpreter() Option {
	return func(c *Config) { c.Interpreter = true }
}

// WithMetrics counts host calls in m.
func WithMetrics(m *preview1.Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// Runtime compiles and runs contracts. It is safe for concurrent use.
type Runtime struct {
	runtime wazero.Runtime
	host    api.Module
	chain   string

	mu      sync.Mutex
	modules map[[32]byte]*Module
}

// New creates a runtime with the host module instantiated.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := Config{ChainName: DefaultChainName}
	for _, opt := range opts {
		opt(&cfg)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.Interpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	}
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	host, err := preview1.Instantiate(ctx, r, preview1.WithMetrics(cfg.Metrics))
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate host module", err)
	}

	return &Runtime{
		runtime: r,
		host:    host,
		chain:   cfg.ChainName,
		modules: make(map[[32]byte]*Module),
	}, nil
}

// ChainName returns the chain directory name contracts see.
func (r *Runtime) ChainName() string {
	return r.chain
}

// Close releases all runtime resources, including cached modules.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	clear(r.modules)
	r.mu.Unlock()
	return r.runtime.Close(ctx)
}
