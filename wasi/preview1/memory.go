package preview1

import (
	"encoding/binary"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bcfs/errors"
)

const iovecSize = 8

func read(mem api.Memory, off, n uint32) ([]byte, error) {
	if mem == nil {
		return nil, errors.Fault(off, n)
	}
	b, ok := mem.Read(off, n)
	if !ok {
		return nil, errors.Fault(off, n)
	}
	return b, nil
}

func readString(mem api.Memory, off, n uint32) (string, error) {
	b, err := read(mem, off, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func write(mem api.Memory, off uint32, p []byte) error {
	if mem == nil || !mem.Write(off, p) {
		return errors.Fault(off, uint32(len(p)))
	}
	return nil
}

func writeU32(mem api.Memory, off, v uint32) error {
	if mem == nil || !mem.WriteUint32Le(off, v) {
		return errors.Fault(off, 4)
	}
	return nil
}

func writeU64(mem api.Memory, off uint32, v uint64) error {
	if mem == nil || !mem.WriteUint64Le(off, v) {
		return errors.Fault(off, 8)
	}
	return nil
}

// iovecs returns views of the guest buffers described by count iovec
// records at ptr. Writes to the views land in guest memory.
func iovecs(mem api.Memory, ptr, count uint32) ([][]byte, error) {
	size := uint64(count) * iovecSize
	if size > uint64(^uint32(0)) {
		return nil, errors.Fault(ptr, ^uint32(0))
	}
	raw, err := read(mem, ptr, uint32(size))
	if err != nil {
		return nil, err
	}

	out := make([][]byte, count)
	for i := range out {
		rec := raw[i*iovecSize:]
		off := binary.LittleEndian.Uint32(rec)
		n := binary.LittleEndian.Uint32(rec[4:])
		buf, err := read(mem, off, n)
		if err != nil {
			return nil, err
		}
		out[i] = buf
	}
	return out, nil
}

// writeStrings lays out list as NUL-terminated strings at buf and their
// addresses at ptrs, the way argv and environ are passed.
func writeStrings(mem api.Memory, ptrs, buf uint32, list []string) error {
	for _, s := range list {
		if err := writeU32(mem, ptrs, buf); err != nil {
			return err
		}
		if err := write(mem, buf, append([]byte(s), 0)); err != nil {
			return err
		}
		ptrs += 4
		buf += uint32(len(s)) + 1
	}
	return nil
}

func stringsSize(list []string) uint32 {
	var n uint32
	for _, s := range list {
		n += uint32(len(s)) + 1
	}
	return n
}
