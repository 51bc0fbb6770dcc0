package graph

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/vecdisk/vecdisk/blockstore"
	"github.com/vecdisk/vecdisk/distance"
)

// metaKey is the host metadata key the index configuration is stored under.
const metaKey = "vecdisk:config"

const (
	metaMagic   = 0x56444B31 // "VDK1"
	metaVersion = 1
	metaSize    = 52
)

// Config is the immutable index configuration, written to the host metadata
// store at creation and read back at every open. Dims, Metric, MaxNeighbors
// and BlockSize can never change after creation; InsertListSize and Alpha
// require a full rebuild to change safely; SearchListSize may be overridden
// per query.
type Config struct {
	IndexID        uuid.UUID
	Dims           int
	Metric         distance.Metric
	MaxNeighbors   int
	Alpha          float32
	InsertListSize int
	SearchListSize int
	BlockSize      int
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.Dims <= 0 {
		return fmt.Errorf("%w: dims must be positive, got %d", ErrConfig, c.Dims)
	}
	if c.MaxNeighbors <= 0 {
		return fmt.Errorf("%w: max neighbors must be positive, got %d", ErrConfig, c.MaxNeighbors)
	}
	if c.Alpha < 1 {
		return fmt.Errorf("%w: alpha must be >= 1, got %g", ErrConfig, c.Alpha)
	}
	if c.InsertListSize <= 0 {
		return fmt.Errorf("%w: insert list size must be positive, got %d", ErrConfig, c.InsertListSize)
	}
	if c.SearchListSize <= 0 {
		return fmt.Errorf("%w: search list size must be positive, got %d", ErrConfig, c.SearchListSize)
	}
	if _, err := distance.Provider(c.Metric); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

func (c Config) encode() []byte {
	buf := make([]byte, metaSize)
	binary.LittleEndian.PutUint32(buf[0:], metaMagic)
	binary.LittleEndian.PutUint16(buf[4:], metaVersion)
	copy(buf[8:24], c.IndexID[:])
	binary.LittleEndian.PutUint32(buf[24:], uint32(c.Dims))
	buf[28] = uint8(c.Metric)
	binary.LittleEndian.PutUint32(buf[32:], uint32(c.MaxNeighbors))
	binary.LittleEndian.PutUint32(buf[36:], uint32(c.InsertListSize))
	binary.LittleEndian.PutUint32(buf[40:], uint32(c.SearchListSize))
	binary.LittleEndian.PutUint32(buf[44:], math.Float32bits(c.Alpha))
	binary.LittleEndian.PutUint32(buf[48:], uint32(c.BlockSize))
	return buf
}

func decodeConfig(buf []byte) (Config, error) {
	var c Config
	if len(buf) != metaSize {
		return c, fmt.Errorf("%w: config record is %d bytes, want %d", ErrConfig, len(buf), metaSize)
	}
	if magic := binary.LittleEndian.Uint32(buf[0:]); magic != metaMagic {
		return c, fmt.Errorf("%w: bad config magic %#x", ErrConfig, magic)
	}
	if v := binary.LittleEndian.Uint16(buf[4:]); v != metaVersion {
		return c, fmt.Errorf("%w: unsupported config version %d", ErrConfig, v)
	}
	copy(c.IndexID[:], buf[8:24])
	c.Dims = int(binary.LittleEndian.Uint32(buf[24:]))
	c.Metric = distance.Metric(buf[28])
	c.MaxNeighbors = int(binary.LittleEndian.Uint32(buf[32:]))
	c.InsertListSize = int(binary.LittleEndian.Uint32(buf[36:]))
	c.SearchListSize = int(binary.LittleEndian.Uint32(buf[40:]))
	c.Alpha = math.Float32frombits(binary.LittleEndian.Uint32(buf[44:]))
	c.BlockSize = int(binary.LittleEndian.Uint32(buf[48:]))
	return c, nil
}

// SaveConfig persists the configuration to the host metadata store.
func SaveConfig(ctx context.Context, ms blockstore.MetaStore, c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := ms.PutMeta(ctx, metaKey, c.encode()); err != nil {
		return fmt.Errorf("save index config: %w", err)
	}
	return nil
}

// LoadConfig reads the configuration back from the host metadata store.
// Returns blockstore.ErrNotFound when no index was created in this store.
func LoadConfig(ctx context.Context, ms blockstore.MetaStore) (Config, error) {
	buf, err := ms.GetMeta(ctx, metaKey)
	if err != nil {
		return Config{}, err
	}
	return decodeConfig(buf)
}
