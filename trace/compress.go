package trace

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the block codec used by a log.
type Compression uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone Compression = iota
	// CompressionLZ4 compresses blocks with LZ4.
	CompressionLZ4
	// CompressionZSTD compresses blocks with Zstandard.
	CompressionZSTD
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZSTD
}

// Compressing a block only pays off if it shrinks below this ratio;
// otherwise the block is framed as raw.
const compressionRatioThreshold = 0.9

var zstdEncoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("trace: create zstd encoder: %v", err))
		}

		return enc
	},
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("trace: create zstd decoder: %v", err))
		}

		return dec
	},
}

// compressBlock compresses data with the given codec. It returns nil when
// the block should be stored raw, either because the codec is
// CompressionNone or because compression does not shrink the block enough.
func compressBlock(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return nil, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))

		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("trace: lz4 compress: %w", err)
		}

		// n == 0 means the block is incompressible.
		if n == 0 || float64(n) > float64(len(data))*compressionRatioThreshold {
			return nil, nil
		}

		return buf[:n], nil
	case CompressionZSTD:
		enc := zstdEncoderPool.Get().(*zstd.Encoder)
		defer zstdEncoderPool.Put(enc)

		buf := enc.EncodeAll(data, nil)
		if float64(len(buf)) > float64(len(data))*compressionRatioThreshold {
			return nil, nil
		}

		return buf, nil
	default:
		return nil, fmt.Errorf("trace: unknown compression %d", compression)
	}
}

// decompressBlock expands a compressed block into a buffer of
// uncompressedSize bytes.
func decompressBlock(data []byte, uncompressedSize int, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionLZ4:
		buf := make([]byte, uncompressedSize)

		n, err := lz4.UncompressBlock(data, buf)
		if err != nil {
			return nil, fmt.Errorf("trace: lz4 decompress: %w", err)
		}

		if n != uncompressedSize {
			return nil, fmt.Errorf("%w: lz4 block expanded to %d bytes, want %d", ErrCorruptBlock, n, uncompressedSize)
		}

		return buf, nil
	case CompressionZSTD:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)

		buf, err := dec.DecodeAll(data, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("trace: zstd decompress: %w", err)
		}

		if len(buf) != uncompressedSize {
			return nil, fmt.Errorf("%w: zstd block expanded to %d bytes, want %d", ErrCorruptBlock, len(buf), uncompressedSize)
		}

		return buf, nil
	default:
		return nil, fmt.Errorf("trace: unknown compression %d", compression)
	}
}
