// Package bcfs exposes a WASI-style file-descriptor layer over the state of a
// pending blockchain transaction.
//
// A BCFS instance is created per transaction and starts with five
// descriptors:
//
//	0  stdin     read-only view of the transaction input
//	1  stdout    write-only; flushing sets the transaction output
//	2  stderr    write-only; flushing sets the output and aborts
//	3  /opt/<chain>  chain root directory
//	4  .         home directory of the executing account
//
// Regular files in the home directory are backed by the account's key/value
// storage: the storage key is the home-relative path. Each account directory
// also carries the synthetic files "balance" and "bytecode", and the chain
// root carries "log", an append-only channel whose records become chain
// events.
//
// Writes are visible immediately to every descriptor on the same file and
// become durable in storage when a descriptor is flushed or closed:
//
//	fs := bcfs.New(ptx, "testchain")
//	fd, err := fs.Open(bcfs.HomeDirFd, "notes", wasi.OFlagCreate, 0)
//	...
//	_, err = fs.Write(fd, [][]byte{[]byte("hello")})
//	err = fs.Close(fd)
//
// All failures are *errors.Error values of one of five kinds: bad_descriptor,
// not_found, already_exists, invalid_argument or access_denied.
package bcfs
