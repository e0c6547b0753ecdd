package preview1

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bcfs/errors"
	"github.com/wippyai/bcfs/wasi"
)

func fdClose(_ context.Context, s *Session, _ api.Memory, stack []uint64) error {
	return s.FS.Close(uint32(stack[0]))
}

func fdRead(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, iovs, iovsLen, resultNread := uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), uint32(stack[3])

	bufs, err := iovecs(mem, iovs, iovsLen)
	if err != nil {
		return err
	}
	n, err := s.FS.Read(fd, bufs)
	if err != nil {
		return err
	}
	return writeU32(mem, resultNread, uint32(n))
}

func fdWrite(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, iovs, iovsLen, resultNwritten := uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), uint32(stack[3])

	bufs, err := iovecs(mem, iovs, iovsLen)
	if err != nil {
		return err
	}
	n, err := s.FS.Write(fd, bufs)
	if err != nil {
		return err
	}
	return writeU32(mem, resultNwritten, uint32(n))
}

func fdPread(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, iovs, iovsLen, offset, resultNread := uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), stack[3], uint32(stack[4])

	bufs, err := iovecs(mem, iovs, iovsLen)
	if err != nil {
		return err
	}
	n, err := s.FS.Pread(fd, bufs, offset)
	if err != nil {
		return err
	}
	return writeU32(mem, resultNread, uint32(n))
}

func fdPwrite(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, iovs, iovsLen, offset, resultNwritten := uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), stack[3], uint32(stack[4])

	bufs, err := iovecs(mem, iovs, iovsLen)
	if err != nil {
		return err
	}
	n, err := s.FS.Pwrite(fd, bufs, offset)
	if err != nil {
		return err
	}
	return writeU32(mem, resultNwritten, uint32(n))
}

func fdSeek(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, offset, whence, resultNewoffset := uint32(stack[0]), int64(stack[1]), uint32(stack[2]), uint32(stack[3])

	if whence > uint32(wasi.WhenceEnd) {
		return errors.InvalidArgument(errors.PhaseSeek, "unknown whence")
	}
	pos, err := s.FS.Seek(fd, offset, wasi.Whence(whence))
	if err != nil {
		return err
	}
	return writeU64(mem, resultNewoffset, pos)
}

func fdTell(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, resultOffset := uint32(stack[0]), uint32(stack[1])

	pos, err := s.FS.Tell(fd)
	if err != nil {
		return err
	}
	return writeU64(mem, resultOffset, pos)
}

// fdSync serves both fd_sync and fd_datasync: there is no metadata apart
// from the data.
func fdSync(_ context.Context, s *Session, _ api.Memory, stack []uint64) error {
	return s.FS.Flush(uint32(stack[0]))
}

func fdRenumber(_ context.Context, s *Session, _ api.Memory, stack []uint64) error {
	return s.FS.Renumber(uint32(stack[0]), uint32(stack[1]))
}

func fdPrestatGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, resultPrestat := uint32(stack[0]), uint32(stack[1])

	name, err := s.FS.Prestat(fd)
	if err != nil {
		return err
	}
	var buf [wasi.PrestatSize]byte
	wasi.EncodePrestatDir(buf[:], uint32(len(name)))
	return write(mem, resultPrestat, buf[:])
}

func fdPrestatDirName(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, path, pathLen := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])

	name, err := s.FS.Prestat(fd)
	if err != nil {
		return err
	}
	if uint32(len(name)) > pathLen {
		return errors.New(errors.PhaseStat, errors.KindInvalidArgument).
			Fd(fd).
			Detail("name needs %d bytes, buffer has %d", len(name), pathLen).
			Build()
	}
	return write(mem, path, []byte(name))
}

func fdFdstatGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, resultStat := uint32(stack[0]), uint32(stack[1])

	st, err := s.FS.Fdstat(fd)
	if err != nil {
		return err
	}
	var buf [wasi.FdStatSize]byte
	st.Encode(buf[:])
	return write(mem, resultStat, buf[:])
}

func fdFilestatGet(_ context.Context, s *Session, mem api.Memory, stack []uint64) error {
	fd, resultStat := uint32(stack[0]), uint32(stack[1])

	st, err := s.FS.Filestat(fd)
	if err != nil {
		return err
	}
	var buf [wasi.FileStatSize]byte
	st.Encode(buf[:])
	return write(mem, resultStat, buf[:])
}
