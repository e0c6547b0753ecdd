package preview1

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bcfs/wasi"
)

// pathOpen ignores lookup flags and rights: there are no symlinks and no
// permissions beyond existence.
func pathOpen(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	dirFd := uint32(stack[0])
	path, pathLen := uint32(stack[2]), uint32(stack[3])
	oflags := wasi.OpenFlags(stack[4])
	fdflags := wasi.FdFlags(stack[7])
	resultFd := uint32(stack[8])

	name, err := readString(mem, path, pathLen)
	if err != nil {
		return err
	}
	fd, err := s.FS.Open(dirFd, name, oflags, fdflags)
	if err != nil {
		return err
	}
	if err := writeU32(mem, resultFd, fd); err != nil {
		_ = s.FS.Close(fd)
		return err
	}
	return nil
}

func pathUnlinkFile(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	dirFd, path, pathLen := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])

	name, err := readString(mem, path, pathLen)
	if err != nil {
		return err
	}
	_, err = s.FS.Unlink(dirFd, name)
	return err
}

func pathFilestatGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	dirFd := uint32(stack[0])
	path, pathLen, resultStat := uint32(stack[2]), uint32(stack[3]), uint32(stack[4])

	name, err := readString(mem, path, pathLen)
	if err != nil {
		return err
	}
	st, err := s.FS.PathFilestat(dirFd, name)
	if err != nil {
		return err
	}
	var buf [wasi.FileStatSize]byte
	st.Encode(buf[:])
	return write(mem, resultStat, buf[:])
}
