package wasi

import (
	"strconv"

	"github.com/wippyai/bcfs/errors"
)

// Errno is a preview1 error number.
type Errno uint16

const (
	ErrnoSuccess Errno = 0
	ErrnoAcces   Errno = 2
	ErrnoBadf    Errno = 8
	ErrnoExist   Errno = 20
	ErrnoFault   Errno = 21
	ErrnoInval   Errno = 28
	ErrnoIO      Errno = 29
	ErrnoIsdir   Errno = 31
	ErrnoNoent   Errno = 44
	ErrnoNosys   Errno = 52
	ErrnoNotdir  Errno = 54
	ErrnoSpipe   Errno = 70
)

var errnoNames = map[Errno]string{
	ErrnoSuccess: "ESUCCESS",
	ErrnoAcces:   "EACCES",
	ErrnoBadf:    "EBADF",
	ErrnoExist:   "EEXIST",
	ErrnoFault:   "EFAULT",
	ErrnoInval:   "EINVAL",
	ErrnoIO:      "EIO",
	ErrnoIsdir:   "EISDIR",
	ErrnoNoent:   "ENOENT",
	ErrnoNosys:   "ENOSYS",
	ErrnoNotdir:  "ENOTDIR",
	ErrnoSpipe:   "ESPIPE",
}

func (e Errno) String() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return "errno(" + strconv.Itoa(int(e)) + ")"
}

// ErrnoOf maps an error onto the errno returned to the guest. nil maps to
// ErrnoSuccess; errors outside the taxonomy map to ErrnoIO.
func ErrnoOf(err error) Errno {
	if err == nil {
		return ErrnoSuccess
	}
	switch errors.KindOf(err) {
	case errors.KindBadDescriptor:
		return ErrnoBadf
	case errors.KindNotFound:
		return ErrnoNoent
	case errors.KindAlreadyExists:
		return ErrnoExist
	case errors.KindInvalidArgument:
		return ErrnoInval
	case errors.KindAccessDenied:
		return ErrnoAcces
	case errors.KindFault:
		return ErrnoFault
	default:
		return ErrnoIO
	}
}
