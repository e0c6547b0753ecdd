package bcfs

import (
	"bytes"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi"
)

// BCFS is the descriptor layer of one pending transaction. It is safe for
// use from multiple goroutines, but calls are serialized.
type BCFS struct {
	ptx   chain.PendingTransaction
	table *table
	store *store
	chain string
	home  chain.Address
	temps uint64
	mu    sync.Mutex
}

// New creates the filesystem for ptx with the reserved descriptors open.
func New(ptx chain.PendingTransaction, chainName string) *BCFS {
	fs := &BCFS{
		ptx:   ptx,
		table: newTable(),
		store: newStore(ptx.State()),
		chain: chainName,
		home:  ptx.Address(),
	}

	root := Path{chain: chainName}
	fs.table.install(StdinFd, &handle{
		kind: KindStdin,
		node: &node{data: bytes.Clone(ptx.Input())},
		name: "/dev/stdin",
	})
	fs.table.install(StdoutFd, &handle{kind: KindStdout, node: &node{}, name: "/dev/stdout"})
	fs.table.install(StderrFd, &handle{kind: KindStderr, node: &node{}, name: "/dev/stderr"})
	fs.table.install(ChainDirFd, &handle{
		kind:    KindDirectory,
		path:    root,
		floor:   0,
		preopen: root.String(),
		name:    root.String(),
	})
	home := root.child(fs.home.Hex())
	fs.table.install(HomeDirFd, &handle{
		kind:    KindDirectory,
		path:    home,
		floor:   home.Depth(),
		preopen: ".",
		name:    home.String(),
	})
	return fs
}

// ChainName returns the chain name used in the chain root path.
func (fs *BCFS) ChainName() string { return fs.chain }

// Home returns the address of the executing account.
func (fs *BCFS) Home() chain.Address { return fs.home }

// Open opens path relative to the directory at dirFd and returns the new
// descriptor.
func (fs *BCFS) Open(dirFd uint32, path string, oflags wasi.OpenFlags, fdflags wasi.FdFlags) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	t, err := fs.resolve(errors.PhaseOpen, dirFd, path)
	if err != nil {
		return 0, err
	}

	var h *handle
	switch {
	case t.entry.isDir():
		h, err = fs.openDir(t, oflags)
	case t.entry.isSpecial():
		h, err = fs.openSpecial(t, oflags, fdflags)
	default:
		h, err = fs.openRegular(t, oflags, fdflags)
	}
	if err != nil {
		return 0, err
	}

	fd := fs.table.allocate(h)
	Logger().Debug("open",
		zap.Uint32("fd", fd),
		zap.String("path", h.name),
		zap.Stringer("kind", h.kind))
	return fd, nil
}

func (fs *BCFS) openDir(t target, oflags wasi.OpenFlags) (*handle, error) {
	name := t.path.String()
	if oflags.Has(wasi.OFlagCreate) || oflags.Has(wasi.OFlagExclusive) {
		return nil, errors.AlreadyExists(errors.PhaseOpen, name)
	}
	if oflags.Has(wasi.OFlagTruncate) {
		return nil, errors.New(errors.PhaseOpen, errors.KindInvalidArgument).
			Path(name).
			Detail("directories cannot be truncated").
			Build()
	}
	floor := t.floor
	if floor > t.path.Depth() {
		floor = t.path.Depth()
	}
	return &handle{
		kind:  KindDirectory,
		path:  t.path,
		floor: floor,
		name:  name,
	}, nil
}

func (fs *BCFS) openRegular(t target, oflags wasi.OpenFlags, fdflags wasi.FdFlags) (*handle, error) {
	name := t.path.String()
	if oflags.Has(wasi.OFlagDirectory) {
		return nil, errors.New(errors.PhaseOpen, errors.KindInvalidArgument).
			Path(name).
			Detail("not a directory").
			Build()
	}

	key := t.storageKey()
	n, exists := fs.store.lookup(key)
	switch {
	case exists && oflags.Has(wasi.OFlagExclusive):
		return nil, errors.AlreadyExists(errors.PhaseOpen, name)
	case !exists && !oflags.Has(wasi.OFlagCreate):
		return nil, errors.NotFound(errors.PhaseOpen, name)
	case !exists:
		n = fs.store.create(key)
	}
	if oflags.Has(wasi.OFlagTruncate) {
		n.truncate()
	}
	fs.store.retain(n)

	return &handle{
		kind:  KindRegular,
		node:  n,
		flags: fdflags,
		name:  name,
	}, nil
}

// Tempfile opens an anonymous file that is never persisted.
func (fs *BCFS) Tempfile() (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.temps++
	h := &handle{
		kind: KindTemp,
		node: &node{data: []byte{}},
		name: "/tmp/" + strconv.FormatUint(fs.temps, 10),
	}
	fd := fs.table.allocate(h)
	Logger().Debug("tempfile", zap.Uint32("fd", fd))
	return fd, nil
}

// Close flushes and removes fd. The descriptor is removed even when the
// flush fails; the flush error is returned.
func (fs *BCFS) Close(fd uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, ok := fs.table.get(fd)
	if !ok {
		return errors.BadDescriptor(errors.PhaseClose, fd)
	}
	err := fs.flush(fd, h)
	if err != nil {
		Logger().Warn("flush on close failed",
			zap.Uint32("fd", fd),
			zap.String("path", h.name),
			zap.Error(err))
	}
	fs.table.remove(fd)
	fs.release(h)
	Logger().Debug("close", zap.Uint32("fd", fd), zap.String("path", h.name))
	return err
}

// Renumber moves the handle at from onto to. The handle previously at to is
// flushed and released first; if that flush fails the table is unchanged.
func (fs *BCFS) Renumber(from, to uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	src, ok := fs.table.get(from)
	if !ok {
		return errors.BadDescriptor(errors.PhaseClose, from)
	}
	dst, ok := fs.table.get(to)
	if !ok {
		return errors.BadDescriptor(errors.PhaseClose, to)
	}
	if from == to {
		return nil
	}

	if err := fs.flush(to, dst); err != nil {
		return err
	}
	fs.release(dst)
	fs.table.replace(to, src)
	fs.table.remove(from)
	Logger().Debug("renumber", zap.Uint32("from", from), zap.Uint32("to", to))
	return nil
}

// Sync flushes every open descriptor in ascending order and returns the
// combined errors.
func (fs *BCFS) Sync() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var err error
	fs.table.each(func(fd uint32, h *handle) bool {
		err = multierr.Append(err, fs.flush(fd, h))
		return true
	})
	return err
}

// Len returns the number of open descriptors.
func (fs *BCFS) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.table.len()
}

func (fs *BCFS) release(h *handle) {
	if h.kind == KindRegular {
		fs.store.release(h.node)
	}
}

func (fs *BCFS) lookupFd(phase errors.Phase, fd uint32) (*handle, error) {
	h, ok := fs.table.get(fd)
	if !ok {
		return nil, errors.BadDescriptor(phase, fd)
	}
	return h, nil
}
