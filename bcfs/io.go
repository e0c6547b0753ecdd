package bcfs

import (
	"go.uber.org/zap"

	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi"
)

// Read reads into iovs at the cursor and advances it. Reading at or past the
// end returns 0.
func (fs *BCFS) Read(fd uint32, iovs [][]byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.readable(errors.PhaseRead, fd)
	if err != nil {
		return 0, err
	}
	n := h.node.readAt(iovs, h.cursor)
	h.cursor += uint64(n)
	return n, nil
}

// Pread reads into iovs at off without moving the cursor.
func (fs *BCFS) Pread(fd uint32, iovs [][]byte, off uint64) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.positional(errors.PhaseRead, fd)
	if err != nil {
		return 0, err
	}
	if !h.kind.readable() {
		return 0, errors.InvalidArgument(errors.PhaseRead, h.kind.String()+" is not readable")
	}
	return h.node.readAt(iovs, off), nil
}

// Write writes iovs at the cursor, or at the end of the file in append mode,
// and advances the cursor past the written bytes.
func (fs *BCFS) Write(fd uint32, iovs [][]byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.lookupFd(errors.PhaseWrite, fd)
	if err != nil {
		return 0, err
	}
	if err := checkWritable(fd, h); err != nil {
		return 0, err
	}

	if h.kind.stream() {
		if err := checkWriteRange(fd, h, iovs, h.node.size()); err != nil {
			return 0, err
		}
		return h.node.append(iovs), nil
	}

	off := h.cursor
	if h.flags.Has(wasi.FdFlagAppend) {
		off = h.node.size()
	}
	if err := checkWriteRange(fd, h, iovs, off); err != nil {
		return 0, err
	}
	n := writeIovs(h.node, iovs, off)
	h.cursor = off + uint64(n)
	return n, nil
}

// Pwrite writes iovs at off. The cursor is not moved, and off is honored
// even in append mode.
func (fs *BCFS) Pwrite(fd uint32, iovs [][]byte, off uint64) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.positional(errors.PhaseWrite, fd)
	if err != nil {
		return 0, err
	}
	if err := checkWritable(fd, h); err != nil {
		return 0, err
	}
	if err := checkWriteRange(fd, h, iovs, off); err != nil {
		return 0, err
	}
	return writeIovs(h.node, iovs, off), nil
}

// Seek moves the cursor and returns the new position. Positions past the end
// are allowed.
func (fs *BCFS) Seek(fd uint32, offset int64, whence wasi.Whence) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.seekable(fd)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case wasi.WhenceStart:
	case wasi.WhenceCurrent:
		base = int64(h.cursor)
	case wasi.WhenceEnd:
		base = int64(h.node.size())
	default:
		return 0, errors.New(errors.PhaseSeek, errors.KindInvalidArgument).
			Fd(fd).
			Detail("unknown whence %d", whence).
			Build()
	}

	pos := base + offset
	if (offset < 0 && pos > base) || pos < 0 {
		return 0, errors.New(errors.PhaseSeek, errors.KindInvalidArgument).
			Fd(fd).
			Detail("seek to negative offset %d from %s", offset, whence).
			Build()
	}
	h.cursor = uint64(pos)
	return h.cursor, nil
}

// Tell returns the cursor.
func (fs *BCFS) Tell(fd uint32) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.seekable(fd)
	if err != nil {
		return 0, err
	}
	return h.cursor, nil
}

// Flush makes buffered data at fd durable. What that means depends on the
// descriptor: regular files are written to storage, stdout and stderr set
// the transaction output, and the log emits an event.
func (fs *BCFS) Flush(fd uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.lookupFd(errors.PhaseFlush, fd)
	if err != nil {
		return err
	}
	return fs.flush(fd, h)
}

func (fs *BCFS) flush(fd uint32, h *handle) error {
	switch h.kind {
	case KindRegular:
		fs.store.persistNode(h.node)
		return nil
	case KindStdout:
		if len(h.node.data) > 0 {
			fs.ptx.Ret(h.node.data)
		}
		return nil
	case KindStderr:
		if len(h.node.data) > 0 {
			fs.ptx.Err(h.node.data)
		}
		return nil
	case KindLog:
		return fs.flushLog(fd, h)
	default:
		return nil
	}
}

// Unlink removes the regular file at path and returns its prior length.
func (fs *BCFS) Unlink(dirFd uint32, path string) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	t, err := fs.resolve(errors.PhaseUnlink, dirFd, path)
	if err != nil {
		return 0, err
	}
	name := t.path.String()
	switch {
	case t.entry.isDir():
		return 0, errors.AccessDenied(errors.PhaseUnlink, name, "directories cannot be unlinked")
	case t.entry.isSpecial():
		return 0, errors.AccessDenied(errors.PhaseUnlink, name, "special files cannot be unlinked")
	}

	existed, size := fs.store.remove(t.storageKey())
	if !existed {
		return 0, errors.NotFound(errors.PhaseUnlink, name)
	}
	Logger().Debug("unlink", zap.String("path", name), zap.Uint64("size", size))
	return size, nil
}

func (fs *BCFS) readable(phase errors.Phase, fd uint32) (*handle, error) {
	h, err := fs.lookupFd(phase, fd)
	if err != nil {
		return nil, err
	}
	switch {
	case h.kind == KindDirectory:
		return nil, errors.BadDescriptor(phase, fd)
	case !h.kind.readable():
		return nil, errors.New(phase, errors.KindInvalidArgument).
			Fd(fd).
			Detail("%s is not readable", h.kind).
			Build()
	}
	return h, nil
}

func (fs *BCFS) positional(phase errors.Phase, fd uint32) (*handle, error) {
	h, err := fs.lookupFd(phase, fd)
	if err != nil {
		return nil, err
	}
	switch {
	case h.kind == KindDirectory:
		return nil, errors.BadDescriptor(phase, fd)
	case !h.kind.positional():
		return nil, errors.New(phase, errors.KindInvalidArgument).
			Fd(fd).
			Detail("%s does not support positional I/O", h.kind).
			Build()
	}
	return h, nil
}

func (fs *BCFS) seekable(fd uint32) (*handle, error) {
	h, err := fs.lookupFd(errors.PhaseSeek, fd)
	if err != nil {
		return nil, err
	}
	switch {
	case h.kind == KindDirectory:
		return nil, errors.BadDescriptor(errors.PhaseSeek, fd)
	case h.kind.stream():
		return nil, errors.New(errors.PhaseSeek, errors.KindInvalidArgument).
			Fd(fd).
			Detail("%s is not seekable", h.kind).
			Build()
	}
	return h, nil
}

func checkWritable(fd uint32, h *handle) error {
	switch {
	case h.kind == KindDirectory:
		return errors.BadDescriptor(errors.PhaseWrite, fd)
	case !h.kind.writable():
		return errors.New(errors.PhaseWrite, errors.KindAccessDenied).
			Fd(fd).
			Path(h.name).
			Detail("%s is read-only", h.kind).
			Build()
	}
	return nil
}

// checkWriteRange rejects writes that would end past MaxFileSize.
func checkWriteRange(fd uint32, h *handle, iovs [][]byte, off uint64) error {
	var total uint64
	for _, iov := range iovs {
		total += uint64(len(iov))
	}
	if total == 0 || (off <= MaxFileSize && total <= MaxFileSize-off) {
		return nil
	}
	return errors.New(errors.PhaseWrite, errors.KindInvalidArgument).
		Fd(fd).
		Path(h.name).
		Detail("write of %d bytes at offset %d exceeds the %d byte file limit", total, off, uint64(MaxFileSize)).
		Build()
}

func writeIovs(n *node, iovs [][]byte, off uint64) int {
	total := 0
	for _, iov := range iovs {
		if len(iov) == 0 {
			continue
		}
		n.writeAt(iov, off)
		off += uint64(len(iov))
		total += len(iov)
	}
	return total
}
