package trace

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Writer appends memory operations to a log stream. Entries are buffered
// into blocks; each block is framed by {UncompressedSize uint32,
// CompressedSize uint32} in little-endian order, where CompressedSize == 0
// marks a raw block. Writer is safe for concurrent use.
type Writer struct {
	mu          sync.Mutex
	w           io.Writer
	closer      io.Closer
	compression Compression
	blockSize   int
	block       []byte
	scratch     [entrySize]byte
	frame       [blockFrameSize]byte
	seq         uint64
	closed      bool
}

const blockFrameSize = 8

// NewWriter starts a new log on w and writes the file header.
func NewWriter(w io.Writer, optFns ...Option) (*Writer, error) {
	opts := applyOptions(optFns...)

	if !opts.compression.valid() {
		return nil, fmt.Errorf("trace: unknown compression %d", opts.compression)
	}

	if opts.blockSize < entrySize {
		return nil, fmt.Errorf("trace: block size %d below entry size %d", opts.blockSize, entrySize)
	}

	tw := &Writer{
		w:           w,
		compression: opts.compression,
		blockSize:   opts.blockSize,
		block:       make([]byte, 0, opts.blockSize+entrySize),
	}

	if err := tw.writeHeader(); err != nil {
		return nil, err
	}

	return tw, nil
}

// Create opens (or truncates) the file at path and starts a log on it.
func Create(path string, optFns ...Option) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("trace: create %s: %w", path, err)
	}

	tw, err := NewWriter(f, optFns...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	tw.closer = f

	return tw, nil
}

func (tw *Writer) writeHeader() error {
	var hdr [headerSize]byte

	copy(hdr[:4], magic[:])
	hdr[4] = formatVersion
	hdr[5] = byte(tw.compression)

	if _, err := tw.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("trace: write header: %w", err)
	}

	return nil
}

// Record appends one operation. The writer assigns the sequence number and
// capture time.
func (tw *Writer) Record(op Op, addr, offset, size int64) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return ErrClosed
	}

	tw.seq++

	e := Entry{
		Seq:      tw.seq,
		UnixNano: time.Now().UnixNano(),
		Op:       op,
		Addr:     addr,
		Offset:   offset,
		Size:     size,
	}

	e.encode(tw.scratch[:])
	tw.block = append(tw.block, tw.scratch[:]...)

	if len(tw.block) >= tw.blockSize {
		return tw.flushBlock()
	}

	return nil
}

// Flush frames and writes the pending block, if any.
func (tw *Writer) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return ErrClosed
	}

	return tw.flushBlock()
}

// Close flushes pending entries and releases the underlying file when the
// writer owns one. Close is idempotent.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}

	err := tw.flushBlock()

	tw.closed = true

	if tw.closer != nil {
		if cerr := tw.closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("trace: close: %w", cerr)
		}
	}

	return err
}

func (tw *Writer) flushBlock() error {
	if len(tw.block) == 0 {
		return nil
	}

	compressed, err := compressBlock(tw.block, tw.compression)
	if err != nil {
		return err
	}

	payload := tw.block

	binary.LittleEndian.PutUint32(tw.frame[0:], uint32(len(tw.block)))

	if compressed != nil {
		binary.LittleEndian.PutUint32(tw.frame[4:], uint32(len(compressed)))
		payload = compressed
	} else {
		binary.LittleEndian.PutUint32(tw.frame[4:], 0)
	}

	if _, err := tw.w.Write(tw.frame[:]); err != nil {
		return fmt.Errorf("trace: write block frame: %w", err)
	}

	if _, err := tw.w.Write(payload); err != nil {
		return fmt.Errorf("trace: write block: %w", err)
	}

	tw.block = tw.block[:0]

	return nil
}
