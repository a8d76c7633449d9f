package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when appending to or reading from a closed log.
	ErrClosed = errors.New("trace: log is closed")
	// ErrBadHeader is returned when a log does not start with a valid header.
	ErrBadHeader = errors.New("trace: bad file header")
	// ErrCorruptBlock is returned when a block frame is inconsistent.
	ErrCorruptBlock = errors.New("trace: corrupt block")
)

// Op identifies the memory operation a log entry records.
type Op uint8

const (
	// OpAllocate records a device memory reservation.
	OpAllocate Op = iota
	// OpFree records the release of a reservation.
	OpFree
	// OpWrite records a host-to-device transfer.
	OpWrite
	// OpRead records a device-to-host transfer.
	OpRead
	// OpFlush records a queue drain.
	OpFlush
)

func (op Op) String() string {
	switch op {
	case OpAllocate:
		return "allocate"
	case OpFree:
		return "free"
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	case OpFlush:
		return "flush"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Entry is one logged memory operation.
type Entry struct {
	// Seq is the 1-based position of the entry in the log.
	Seq uint64
	// UnixNano is the wall-clock capture time.
	UnixNano int64
	// Op is the operation kind.
	Op Op
	// Addr is the device address of the region involved (0 for OpFlush).
	Addr int64
	// Offset is the transfer offset within the region.
	Offset int64
	// Size is the byte count reserved, freed, or moved.
	Size int64
}

// entrySize is the fixed on-disk entry width:
// [Seq:8][UnixNano:8][Op:1][Addr:8][Offset:8][Size:8], little-endian.
const entrySize = 41

func (e Entry) encode(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:], e.Seq)
	binary.LittleEndian.PutUint64(dst[8:], uint64(e.UnixNano))
	dst[16] = byte(e.Op)
	binary.LittleEndian.PutUint64(dst[17:], uint64(e.Addr))
	binary.LittleEndian.PutUint64(dst[25:], uint64(e.Offset))
	binary.LittleEndian.PutUint64(dst[33:], uint64(e.Size))
}

func decodeEntry(src []byte) Entry {
	return Entry{
		Seq:      binary.LittleEndian.Uint64(src[0:]),
		UnixNano: int64(binary.LittleEndian.Uint64(src[8:])),
		Op:       Op(src[16]),
		Addr:     int64(binary.LittleEndian.Uint64(src[17:])),
		Offset:   int64(binary.LittleEndian.Uint64(src[25:])),
		Size:     int64(binary.LittleEndian.Uint64(src[33:])),
	}
}

// File header: [magic "THTR":4][version:1][compression:1][reserved:2].
var magic = [4]byte{'T', 'H', 'T', 'R'}

const (
	formatVersion = 1
	headerSize    = 8
)
