package bcfs

import (
	"fmt"

	"github.com/wippyai/bcfs/wasi"
)

// Kind is the variant of an open descriptor.
type Kind uint8

const (
	KindRegular Kind = iota
	KindDirectory
	KindBalance
	KindBytecode
	KindLog
	KindStdin
	KindStdout
	KindStderr
	KindTemp
)

var kindNames = [...]string{
	KindRegular:   "regular",
	KindDirectory: "directory",
	KindBalance:   "balance",
	KindBytecode:  "bytecode",
	KindLog:       "log",
	KindStdin:     "stdin",
	KindStdout:    "stdout",
	KindStderr:    "stderr",
	KindTemp:      "temp",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// stream kinds have no position.
func (k Kind) stream() bool {
	return k == KindStdout || k == KindStderr || k == KindLog
}

func (k Kind) readable() bool {
	return !k.stream() && k != KindDirectory
}

func (k Kind) writable() bool {
	switch k {
	case KindRegular, KindTemp, KindStdout, KindStderr, KindLog:
		return true
	}
	return false
}

// positional reports whether pread/pwrite apply.
func (k Kind) positional() bool {
	switch k {
	case KindRegular, KindTemp, KindBalance, KindBytecode:
		return true
	}
	return false
}

// handle is an open descriptor.
type handle struct {
	kind   Kind
	node   *node
	cursor uint64
	flags  wasi.FdFlags

	// name identifies the handle in errors, logs and inode numbers.
	name string

	// Directory state.
	path    Path
	floor   int
	preopen string
}

func (h *handle) fileType() wasi.FileType {
	if h.kind == KindDirectory {
		return wasi.FileTypeDirectory
	}
	return wasi.FileTypeRegularFile
}

const (
	fileRights = wasi.RightFdDatasync | wasi.RightFdRead | wasi.RightFdSeek |
		wasi.RightFdSync | wasi.RightFdTell | wasi.RightFdWrite | wasi.RightFdFilestatGet

	dirRights = wasi.RightPathOpen | wasi.RightPathUnlinkFile | wasi.RightPathFilestatGet |
		wasi.RightPathCreateFile | wasi.RightFdFilestatGet
)

// rights derives the capability set from the handle kind.
func (h *handle) rights() (base, inheriting wasi.Rights) {
	if h.kind == KindDirectory {
		return dirRights, fileRights
	}
	base = wasi.RightFdFilestatGet | wasi.RightFdSync | wasi.RightFdDatasync
	if h.kind.readable() {
		base |= wasi.RightFdRead
	}
	if h.kind.writable() {
		base |= wasi.RightFdWrite
	}
	if !h.kind.stream() {
		base |= wasi.RightFdSeek | wasi.RightFdTell
	}
	return base, 0
}

func (h *handle) size() uint64 {
	if h.node == nil {
		return 0
	}
	return h.node.size()
}
