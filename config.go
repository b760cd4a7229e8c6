package fixedpool

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/replay/go-fixed-pool/backing"
)

// DefaultSlotsPerPool is the pool capacity used by NewConfig. Its bitmap
// fills 128 words.
const DefaultSlotsPerPool = 8192

// Config provides a PoolConfig with default settings.
var Config = NewConfig()

// PoolConfig is used by New when creating an allocator.
type PoolConfig struct {
	// SlotsPerPool is the fixed number of slots in every pool of the
	// chain. Larger values mean fewer pools but longer bitmap scans.
	SlotsPerPool uint

	// Storage supplies the slot arrays.
	Storage backing.Allocator

	// Metadata supplies the occupancy bitmaps. It may be the same
	// allocator as Storage.
	Metadata backing.Allocator

	// Logger receives diagnostics. A nil Logger discards them.
	Logger *zap.Logger
}

// NewConfig returns a pool configuration with default settings: 8192
// slots per pool, both backings on the Go heap and no logging.
func NewConfig() PoolConfig {
	heap := backing.Go()
	return PoolConfig{
		SlotsPerPool: DefaultSlotsPerPool,
		Storage:      heap,
		Metadata:     heap,
		Logger:       zap.NewNop(),
	}
}

// Validate reports whether the configuration can build an allocator.
func (c PoolConfig) Validate() error {
	if c.SlotsPerPool == 0 {
		return errors.Wrap(ErrInvalidConfig, "SlotsPerPool must be positive")
	}
	if c.Storage == nil {
		return errors.Wrap(ErrInvalidConfig, "Storage allocator is nil")
	}
	if c.Metadata == nil {
		return errors.Wrap(ErrInvalidConfig, "Metadata allocator is nil")
	}
	return nil
}
