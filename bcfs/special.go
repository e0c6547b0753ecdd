package bcfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi"
)

func (fs *BCFS) openSpecial(t target, oflags wasi.OpenFlags, fdflags wasi.FdFlags) (*handle, error) {
	name := t.path.String()
	switch {
	case oflags.Has(wasi.OFlagCreate) || oflags.Has(wasi.OFlagExclusive):
		return nil, errors.New(errors.PhaseOpen, errors.KindAlreadyExists).
			Path(name).
			Detail("special files cannot be created").
			Build()
	case oflags.Has(wasi.OFlagTruncate):
		return nil, errors.New(errors.PhaseOpen, errors.KindInvalidArgument).
			Path(name).
			Detail("special files cannot be truncated").
			Build()
	case oflags.Has(wasi.OFlagDirectory):
		return nil, errors.New(errors.PhaseOpen, errors.KindInvalidArgument).
			Path(name).
			Detail("not a directory").
			Build()
	}

	h := &handle{flags: fdflags, name: name}
	switch t.entry {
	case entryLog:
		if !fdflags.Has(wasi.FdFlagAppend) {
			return nil, errors.New(errors.PhaseOpen, errors.KindInvalidArgument).
				Path(name).
				Detail("log must be opened in append mode").
				Build()
		}
		h.kind = KindLog
		h.node = &node{}
	case entryBalance:
		meta, _ := fs.ptx.AccountMetaAt(t.owner)
		b := meta.Balance.Bytes()
		h.kind = KindBalance
		h.node = &node{data: b[:]}
	case entryBytecode:
		code, _ := fs.ptx.CodeAt(t.owner)
		h.kind = KindBytecode
		h.node = &node{data: bytes.Clone(code)}
	}
	return h, nil
}

// flushLog decodes the bytes written since the previous flush as one event
// record and emits it. The buffer is discarded whether or not it decodes.
func (fs *BCFS) flushLog(fd uint32, h *handle) error {
	buf := h.node.data
	if len(buf) == 0 {
		return nil
	}
	h.node.data = nil

	topics, data, err := decodeRecord(buf)
	if err != nil {
		return errors.New(errors.PhaseFlush, errors.KindInvalidArgument).
			Fd(fd).
			Path(h.name).
			Cause(err).
			Detail("malformed log record").
			Build()
	}
	fs.ptx.Emit(topics, data)
	Logger().Debug("emit",
		zap.Uint32("fd", fd),
		zap.Int("topics", len(topics)),
		zap.Int("size", len(data)))
	return nil
}

// decodeRecord parses u32le ntopics, ntopics × (u32le len, bytes),
// u32le datalen, data. The record must span buf exactly.
func decodeRecord(buf []byte) (topics [][]byte, data []byte, err error) {
	r := recordReader{buf: buf}
	ntopics, err := r.u32()
	if err != nil {
		return nil, nil, err
	}
	if uint64(ntopics)*4 > uint64(len(r.buf)) {
		return nil, nil, fmt.Errorf("topic count %d exceeds record size", ntopics)
	}
	topics = make([][]byte, 0, ntopics)
	for i := uint32(0); i < ntopics; i++ {
		t, err := r.chunk()
		if err != nil {
			return nil, nil, fmt.Errorf("topic %d: %w", i, err)
		}
		topics = append(topics, t)
	}
	data, err = r.chunk()
	if err != nil {
		return nil, nil, fmt.Errorf("data: %w", err)
	}
	if len(r.buf) != 0 {
		return nil, nil, fmt.Errorf("%d trailing bytes", len(r.buf))
	}
	return topics, data, nil
}

// EncodeRecord builds a log record in the format read by the log file.
func EncodeRecord(topics [][]byte, data []byte) []byte {
	size := 8 + len(data)
	for _, t := range topics {
		size += 4 + len(t)
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(topics)))
	for _, t := range topics {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(t)))
		out = append(out, t...)
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	return append(out, data...)
}

type recordReader struct {
	buf []byte
}

func (r *recordReader) u32() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, fmt.Errorf("truncated length prefix")
	}
	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v, nil
}

func (r *recordReader) chunk() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(r.buf)) {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, len(r.buf))
	}
	out := bytes.Clone(r.buf[:n])
	r.buf = r.buf[n:]
	return out, nil
}

// Prestat returns the preopened directory name at fd.
func (fs *BCFS) Prestat(fd uint32) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, ok := fs.table.get(fd)
	if !ok || h.preopen == "" {
		return "", errors.BadDescriptor(errors.PhaseStat, fd)
	}
	return h.preopen, nil
}

// Fdstat describes the descriptor at fd.
func (fs *BCFS) Fdstat(fd uint32) (wasi.FdStat, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.lookupFd(errors.PhaseStat, fd)
	if err != nil {
		return wasi.FdStat{}, err
	}
	base, inheriting := h.rights()
	return wasi.FdStat{
		FileType:         h.fileType(),
		Flags:            h.flags,
		RightsBase:       base,
		RightsInheriting: inheriting,
	}, nil
}

// Filestat describes the file open at fd. Timestamps are always zero.
func (fs *BCFS) Filestat(fd uint32) (wasi.FileStat, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	h, err := fs.lookupFd(errors.PhaseStat, fd)
	if err != nil {
		return wasi.FileStat{}, err
	}
	return wasi.FileStat{
		Inode:    inode(h.name),
		FileType: h.fileType(),
		NLink:    1,
		Size:     h.size(),
	}, nil
}

// PathFilestat describes the file at path relative to dirFd.
func (fs *BCFS) PathFilestat(dirFd uint32, path string) (wasi.FileStat, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	t, err := fs.resolve(errors.PhaseStat, dirFd, path)
	if err != nil {
		return wasi.FileStat{}, err
	}
	name := t.path.String()
	st := wasi.FileStat{
		Inode:    inode(name),
		FileType: wasi.FileTypeRegularFile,
		NLink:    1,
	}

	switch t.entry {
	case entryChainRoot, entryAccountDir:
		st.FileType = wasi.FileTypeDirectory
	case entryLog:
	case entryBalance:
		st.Size = chain.BalanceSize
	case entryBytecode:
		code, _ := fs.ptx.CodeAt(t.owner)
		st.Size = uint64(len(code))
	default:
		n, ok := fs.store.lookup(t.storageKey())
		if !ok {
			return wasi.FileStat{}, errors.NotFound(errors.PhaseStat, name)
		}
		st.Size = n.size()
	}
	return st, nil
}

// inode derives a stable inode number from a canonical name.
func inode(name string) uint64 {
	sum := blake3.Sum256([]byte(name))
	return binary.LittleEndian.Uint64(sum[:8])
}
