package wasi

import "encoding/binary"

// Fd is a descriptor number as seen by the guest.
type Fd uint32

// OpenFlags are the oflags argument of path_open.
type OpenFlags uint16

const (
	OFlagCreate    OpenFlags = 1 << 0
	OFlagDirectory OpenFlags = 1 << 1
	OFlagExclusive OpenFlags = 1 << 2
	OFlagTruncate  OpenFlags = 1 << 3
)

// Has reports whether all bits of f are set.
func (o OpenFlags) Has(f OpenFlags) bool { return o&f == f }

// FdFlags are descriptor flags.
type FdFlags uint16

const (
	FdFlagAppend   FdFlags = 1 << 0
	FdFlagDSync    FdFlags = 1 << 1
	FdFlagNonBlock FdFlags = 1 << 2
	FdFlagRSync    FdFlags = 1 << 3
	FdFlagSync     FdFlags = 1 << 4
)

// Has reports whether all bits of f are set.
func (d FdFlags) Has(f FdFlags) bool { return d&f == f }

// Whence is the origin of a seek.
type Whence uint8

const (
	WhenceStart   Whence = 0
	WhenceCurrent Whence = 1
	WhenceEnd     Whence = 2
)

func (w Whence) String() string {
	switch w {
	case WhenceStart:
		return "start"
	case WhenceCurrent:
		return "current"
	case WhenceEnd:
		return "end"
	default:
		return "unknown"
	}
}

// FileType is the type of a descriptor's target.
type FileType uint8

const (
	FileTypeUnknown         FileType = 0
	FileTypeBlockDevice     FileType = 1
	FileTypeCharacterDevice FileType = 2
	FileTypeDirectory       FileType = 3
	FileTypeRegularFile     FileType = 4
	FileTypeSocketDgram     FileType = 5
	FileTypeSocketStream    FileType = 6
	FileTypeSymbolicLink    FileType = 7
)

// Rights is the preview1 capability bitset.
type Rights uint64

const (
	RightFdDatasync Rights = 1 << iota
	RightFdRead
	RightFdSeek
	RightFdFdstatSetFlags
	RightFdSync
	RightFdTell
	RightFdWrite
	RightFdAdvise
	RightFdAllocate
	RightPathCreateDirectory
	RightPathCreateFile
	RightPathLinkSource
	RightPathLinkTarget
	RightPathOpen
	RightFdReaddir
	RightPathReadlink
	RightPathRenameSource
	RightPathRenameTarget
	RightPathFilestatGet
	RightPathFilestatSetSize
	RightPathFilestatSetTimes
	RightFdFilestatGet
	RightFdFilestatSetSize
	RightFdFilestatSetTimes
	RightPathSymlink
	RightPathRemoveDirectory
	RightPathUnlinkFile
	RightPollFdReadwrite
	RightSockShutdown
)

// FdStat is the fdstat record.
type FdStat struct {
	FileType         FileType
	Flags            FdFlags
	RightsBase       Rights
	RightsInheriting Rights
}

// FdStatSize is the encoded size of FdStat in guest memory.
const FdStatSize = 24

// Encode writes the record in its guest memory layout.
func (s FdStat) Encode(buf []byte) {
	_ = buf[FdStatSize-1]
	clear(buf[:FdStatSize])
	buf[0] = byte(s.FileType)
	binary.LittleEndian.PutUint16(buf[2:], uint16(s.Flags))
	binary.LittleEndian.PutUint64(buf[8:], uint64(s.RightsBase))
	binary.LittleEndian.PutUint64(buf[16:], uint64(s.RightsInheriting))
}

// FileStat is the filestat record.
type FileStat struct {
	Device   uint64
	Inode    uint64
	FileType FileType
	NLink    uint64
	Size     uint64
	ATime    uint64
	MTime    uint64
	CTime    uint64
}

// FileStatSize is the encoded size of FileStat in guest memory.
const FileStatSize = 64

// Encode writes the record in its guest memory layout.
func (s FileStat) Encode(buf []byte) {
	_ = buf[FileStatSize-1]
	clear(buf[:FileStatSize])
	binary.LittleEndian.PutUint64(buf[0:], s.Device)
	binary.LittleEndian.PutUint64(buf[8:], s.Inode)
	buf[16] = byte(s.FileType)
	binary.LittleEndian.PutUint64(buf[24:], s.NLink)
	binary.LittleEndian.PutUint64(buf[32:], s.Size)
	binary.LittleEndian.PutUint64(buf[40:], s.ATime)
	binary.LittleEndian.PutUint64(buf[48:], s.MTime)
	binary.LittleEndian.PutUint64(buf[56:], s.CTime)
}

// PrestatSize is the encoded size of a prestat record: a one-byte tag
// (0 = directory) followed by the u32 length of the directory name.
const PrestatSize = 8

// EncodePrestatDir writes a directory prestat record.
func EncodePrestatDir(buf []byte, nameLen uint32) {
	_ = buf[PrestatSize-1]
	clear(buf[:PrestatSize])
	binary.LittleEndian.PutUint32(buf[4:], nameLen)
}
