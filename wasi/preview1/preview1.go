package preview1

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi"
)

// ModuleName is the import module served by this package.
const ModuleName = "wasi_snapshot_preview1"

const (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// function is a host call returning an errno. call reads its parameters
// from stack; the errno is written to stack[0] after it returns.
type function struct {
	name   string
	params []api.ValueType
	call   func(ctx context.Context, s *Session, mem api.Memory, stack []uint64) error
}

var functions = []function{
	{"fd_close", []api.ValueType{i32}, fdClose},
	{"fd_read", []api.ValueType{i32, i32, i32, i32}, fdRead},
	{"fd_write", []api.ValueType{i32, i32, i32, i32}, fdWrite},
	{"fd_pread", []api.ValueType{i32, i32, i32, i64, i32}, fdPread},
	{"fd_pwrite", []api.ValueType{i32, i32, i32, i64, i32}, fdPwrite},
	{"fd_seek", []api.ValueType{i32, i64, i32, i32}, fdSeek},
	{"fd_tell", []api.ValueType{i32, i32}, fdTell},
	{"fd_sync", []api.ValueType{i32}, fdSync},
	{"fd_datasync", []api.ValueType{i32}, fdSync},
	{"fd_renumber", []api.ValueType{i32, i32}, fdRenumber},
	{"fd_prestat_get", []api.ValueType{i32, i32}, fdPrestatGet},
	{"fd_prestat_dir_name", []api.ValueType{i32, i32, i32}, fdPrestatDirName},
	{"fd_fdstat_get", []api.ValueType{i32, i32}, fdFdstatGet},
	{"fd_filestat_get", []api.ValueType{i32, i32}, fdFilestatGet},
	{"path_open", []api.ValueType{i32, i32, i32, i32, i32, i64, i64, i32, i32}, pathOpen},
	{"path_unlink_file", []api.ValueType{i32, i32, i32}, pathUnlinkFile},
	{"path_filestat_get", []api.ValueType{i32, i32, i32, i32, i32}, pathFilestatGet},
	{"environ_sizes_get", []api.ValueType{i32, i32}, environSizesGet},
	{"environ_get", []api.ValueType{i32, i32}, environGet},
	{"args_sizes_get", []api.ValueType{i32, i32}, argsSizesGet},
	{"args_get", []api.ValueType{i32, i32}, argsGet},
}

const procExitName = "proc_exit"

var errNoSession = errors.New(errors.PhaseHost, errors.KindInvalidData).
	Detail("no session bound to the call context").
	Build()

// Option configures the host module.
type Option func(*host)

// WithMetrics counts every call in m.
func WithMetrics(m *Metrics) Option {
	return func(h *host) {
		h.metrics = m
	}
}

type host struct {
	metrics *Metrics
}

// NewHostModuleBuilder returns a builder with every host function exported.
func NewHostModuleBuilder(r wazero.Runtime, opts ...Option) wazero.HostModuleBuilder {
	h := &host{}
	for _, opt := range opts {
		opt(h)
	}

	builder := r.NewHostModuleBuilder(ModuleName)
	for _, f := range functions {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(h.wrap(f), f.params, []api.ValueType{i32}).
			Export(f.name)
	}
	return builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.procExit), []api.ValueType{i32}, nil).
		Export(procExitName)
}

// Instantiate instantiates the host module in r.
func Instantiate(ctx context.Context, r wazero.Runtime, opts ...Option) (api.Module, error) {
	return NewHostModuleBuilder(r, opts...).Instantiate(ctx)
}

// FunctionNames returns the exported function names in sorted order.
func FunctionNames() []string {
	names := make([]string, 0, len(functions)+1)
	for _, f := range functions {
		names = append(names, f.name)
	}
	names = append(names, procExitName)
	sort.Strings(names)
	return names
}

func (h *host) wrap(f function) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var err error
		if s := GetSession(ctx); s == nil {
			err = errNoSession
		} else {
			err = f.call(ctx, s, mod.Memory(), stack)
		}
		errno := wasi.ErrnoOf(err)
		h.metrics.observe(f.name, errno)
		stack[0] = uint64(errno)
	}
}
