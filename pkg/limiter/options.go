package limiter

import (
	"go.uber.org/zap"

	"github.com/admitgate/ratelimit/pkg/clock"
)

// Option configures a limiter at construction time.
type Option func(*settings)

type settings struct {
	prefix string
	clock  clock.Clock
	log    *zap.Logger
	rec    MetricsRecorder
}

func newSettings(opts []Option) settings {
	s := settings{
		prefix: DefaultPrefix,
		clock:  clock.System(),
		log:    zap.NewNop(),
		rec:    NoOpMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithPrefix sets the key namespace prefix (default "ratelimit:"). Distinct
// deployments sharing one store should pick distinct prefixes.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithClock injects the time source. Tests use a manual clock here; the
// default is the system clock.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithLogger injects a zap logger. Self-healing repairs and piggybacked
// cleanup failures are logged rather than returned; the default logger drops
// them.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder injects a custom metrics backend.
func WithRecorder(rec MetricsRecorder) Option {
	return func(s *settings) {
		if rec != nil {
			s.rec = rec
		}
	}
}
