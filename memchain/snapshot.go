package memchain

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/wippyai/bcfs/chain"
	"github.com/wippyai/bcfs/errors"
)

// snapshotMagic prefixes every snapshot, followed by one compression byte.
var snapshotMagic = []byte("BCFSSNAP")

// snapshotVersion is stored in the payload and checked on load.
const snapshotVersion = 1

// Compression identifies the snapshot payload compression. The values are
// part of the file format.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionLZ4  Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

type snapshot struct {
	Version  int               `cbor:"1,keyasint"`
	Chain    string            `cbor:"2,keyasint"`
	BaseGas  uint64            `cbor:"3,keyasint"`
	Height   uint64            `cbor:"4,keyasint"`
	Accounts []snapshotAccount `cbor:"5,keyasint"`
	Events   []chain.Event     `cbor:"6,keyasint,omitempty"`
}

type snapshotAccount struct {
	Address chain.Address     `cbor:"1,keyasint"`
	Balance []byte            `cbor:"2,keyasint"`
	Code    []byte            `cbor:"3,keyasint,omitempty"`
	Nonce   uint64            `cbor:"4,keyasint,omitempty"`
	Storage map[string][]byte `cbor:"5,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("memchain: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("memchain: CBOR decoder initialization failed: " + err.Error())
	}
}

// SaveSnapshot writes the state of the last block. Go Main functions are
// not persisted.
func (m *Memchain) SaveSnapshot(w io.Writer, c Compression) error {
	m.mu.Lock()
	last := m.blocks[len(m.blocks)-1]
	snap := snapshot{
		Version: snapshotVersion,
		Chain:   m.name,
		BaseGas: m.baseGas,
		Height:  last.number,
	}
	for _, addr := range last.state.Addresses() {
		acct := last.state[addr]
		bal := acct.Balance.Bytes()
		snap.Accounts = append(snap.Accounts, snapshotAccount{
			Address: addr,
			Balance: bal[:],
			Code:    acct.Code,
			Nonce:   acct.Nonce,
			Storage: acct.Storage,
		})
	}
	for _, b := range m.blocks {
		snap.Events = append(snap.Events, b.events...)
	}
	payload, err := encMode.Marshal(snap)
	m.mu.Unlock()
	if err != nil {
		return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "encode snapshot")
	}

	compressed, err := compress(payload, c)
	if err != nil {
		return errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "compress snapshot")
	}

	var header bytes.Buffer
	header.Write(snapshotMagic)
	header.WriteByte(byte(c))
	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}
	_, err = w.Write(compressed)
	return err
}

// LoadSnapshot restores a chain from a snapshot. The restored chain starts
// a new block on top of the snapshot height.
func LoadSnapshot(r io.Reader, opts ...Option) (*Memchain, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) < len(snapshotMagic)+1 || !bytes.Equal(raw[:len(snapshotMagic)], snapshotMagic) {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
			Detail("not a snapshot").
			Build()
	}
	c := Compression(raw[len(snapshotMagic)])
	payload, err := decompress(raw[len(snapshotMagic)+1:], c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "decompress snapshot")
	}

	var snap snapshot
	if err := decMode.Unmarshal(payload, &snap); err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "decode snapshot")
	}
	if snap.Version != snapshotVersion {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
			Detail("unsupported snapshot version %d", snap.Version).
			Build()
	}

	state := make(State, len(snap.Accounts))
	for _, sa := range snap.Accounts {
		if len(sa.Balance) != chain.BalanceSize {
			return nil, errors.New(errors.PhaseSnapshot, errors.KindInvalidData).
				Detail("account %s: balance is %d bytes", sa.Address, len(sa.Balance)).
				Build()
		}
		storage := sa.Storage
		if storage == nil {
			storage = map[string][]byte{}
		}
		state[sa.Address] = &Account{
			Balance: chain.BalanceFromBytes([chain.BalanceSize]byte(sa.Balance)),
			Code:    sa.Code,
			Nonce:   sa.Nonce,
			Storage: maps.Clone(storage),
		}
	}

	m := New(snap.Chain, nil, snap.BaseGas, opts...)
	genesis := m.blocks[0]
	genesis.number = snap.Height
	genesis.state = state
	genesis.events = slices.Clone(snap.Events)
	m.blocks[1] = &Block{chain: m, number: snap.Height + 1, state: state.Clone()}
	return m, nil
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("memchain: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("memchain: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}
