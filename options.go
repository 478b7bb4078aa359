package npy

// options collects the knobs shared by the writer and the file-level
// helpers. Not every constructor consumes every field; each documents
// what it uses.
type options struct {
	fortranOrder bool
	bufferSize   int
	logger       *Logger
}

func defaultOptions() options {
	return options{
		bufferSize: 256 * 1024,
		logger:     NoopLogger(),
	}
}

// Option configures writers and the Open/Save helpers.
type Option func(*options)

// WithFortranOrder marks the payload as column-major. The writer
// records the flag and streams elements exactly as supplied; it does
// not reorder them.
func WithFortranOrder() Option {
	return func(o *options) {
		o.fortranOrder = true
	}
}

// WithBufferSize sets the write buffer size in bytes. The default is
// 256KB.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithLogger attaches a logger to file-level operations. The default
// discards all output.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
