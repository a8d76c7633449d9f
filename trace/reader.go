package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader iterates over the entries of a log stream. It is not safe for
// concurrent use.
type Reader struct {
	r           io.Reader
	closer      io.Closer
	compression Compression
	block       []byte
	off         int
}

// NewReader reads the log header from r and prepares to iterate entries.
func NewReader(r io.Reader) (*Reader, error) {
	var hdr [headerSize]byte

	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}

	if [4]byte(hdr[:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadHeader, hdr[:4])
	}

	if hdr[4] != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadHeader, hdr[4])
	}

	compression := Compression(hdr[5])
	if !compression.valid() {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrBadHeader, hdr[5])
	}

	return &Reader{r: r, compression: compression}, nil
}

// Open opens the log file at path for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}

	tr, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	tr.closer = f

	return tr, nil
}

// Compression reports the block codec recorded in the log header.
func (tr *Reader) Compression() Compression {
	return tr.compression
}

// Next returns the next entry, or io.EOF after the last one.
func (tr *Reader) Next() (Entry, error) {
	for tr.off >= len(tr.block) {
		if err := tr.readBlock(); err != nil {
			return Entry{}, err
		}
	}

	e := decodeEntry(tr.block[tr.off:])
	tr.off += entrySize

	return e, nil
}

// Replay calls fn for every remaining entry, stopping at the first error.
func (tr *Reader) Replay(fn func(Entry) error) error {
	for {
		e, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		if err := fn(e); err != nil {
			return err
		}
	}
}

// Close releases the underlying file when the reader owns one.
func (tr *Reader) Close() error {
	if tr.closer == nil {
		return nil
	}

	closer := tr.closer
	tr.closer = nil

	return closer.Close()
}

func (tr *Reader) readBlock() error {
	var frame [blockFrameSize]byte

	if _, err := io.ReadFull(tr.r, frame[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}

		return fmt.Errorf("trace: read block frame: %w", err)
	}

	uncompressedSize := binary.LittleEndian.Uint32(frame[0:])
	compressedSize := binary.LittleEndian.Uint32(frame[4:])

	if uncompressedSize == 0 || uncompressedSize%entrySize != 0 {
		return fmt.Errorf("%w: uncompressed size %d", ErrCorruptBlock, uncompressedSize)
	}

	if compressedSize == 0 {
		buf := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(tr.r, buf); err != nil {
			return fmt.Errorf("trace: read block: %w", err)
		}

		tr.block = buf
		tr.off = 0

		return nil
	}

	if tr.compression == CompressionNone {
		return fmt.Errorf("%w: compressed block in an uncompressed log", ErrCorruptBlock)
	}

	buf := make([]byte, compressedSize)
	if _, err := io.ReadFull(tr.r, buf); err != nil {
		return fmt.Errorf("trace: read block: %w", err)
	}

	block, err := decompressBlock(buf, int(uncompressedSize), tr.compression)
	if err != nil {
		return err
	}

	tr.block = block
	tr.off = 0

	return nil
}
