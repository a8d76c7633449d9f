package trace

// DefaultBlockSize is the amount of entry data buffered before a block
// is framed and written out.
const DefaultBlockSize = 16 << 10

type options struct {
	compression Compression
	blockSize   int
}

// Option configures a log writer.
type Option func(*options)

// WithCompression selects the block codec. The default is CompressionNone.
func WithCompression(compression Compression) Option {
	return func(o *options) {
		o.compression = compression
	}
}

// WithBlockSize sets the block buffering threshold in bytes. Larger blocks
// compress better; smaller blocks lose less on a crash.
func WithBlockSize(blockSize int) Option {
	return func(o *options) {
		o.blockSize = blockSize
	}
}

func applyOptions(optFns ...Option) options {
	opts := options{
		compression: CompressionNone,
		blockSize:   DefaultBlockSize,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}
