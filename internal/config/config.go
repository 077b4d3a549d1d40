// Package config loads blocksim settings from a JSON file.
//
// Every field is optional. Omitted fields fall back to the defaults
// returned by the Get* accessors, so a partial file is always safe.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cwbudde/blocksim/internal/overlay"
	"github.com/cwbudde/blocksim/internal/quantize"
)

// Default values used when a field is not set.
const (
	DefaultBlockSize = 30
	DefaultThreshold = 0.8
	DefaultDataDir   = "./data"
	DefaultStore     = StoreFS
)

// Store backends.
const (
	StoreFS     = "fs"
	StoreSQLite = "sqlite"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the root configuration. The JSON keys match the long names of
// the CLI flags that override them.
type Config struct {
	BlockSize     *int     `json:"block_size,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	Alpha         *float64 `json:"alpha,omitempty"`
	Colormap      *string  `json:"colormap,omitempty"`
	Workers       *int     `json:"workers,omitempty"`
	Palette       []int    `json:"palette,omitempty"`
	StrictPalette *bool    `json:"strict_palette,omitempty"`
	DataDir       *string  `json:"data_dir,omitempty"`
	Store         *string  `json:"store,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The path must have a .json
// extension and the file must not exceed 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field that is set.
func (c *Config) Validate() error {
	if c.BlockSize != nil && *c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", *c.BlockSize)
	}
	if c.Threshold != nil && !inUnit(*c.Threshold) {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", *c.Threshold)
	}
	if c.Alpha != nil && !inUnit(*c.Alpha) {
		return fmt.Errorf("alpha must be between 0 and 1, got %f", *c.Alpha)
	}
	if c.Colormap != nil {
		if _, err := overlay.NewColormap(*c.Colormap); err != nil {
			return err
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.Palette != nil {
		if _, err := c.Quantizer(); err != nil {
			return err
		}
	}
	if c.Store != nil && *c.Store != StoreFS && *c.Store != StoreSQLite {
		return fmt.Errorf("store must be %q or %q, got %q", StoreFS, StoreSQLite, *c.Store)
	}
	return nil
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// GetBlockSize returns block_size or the default.
func (c *Config) GetBlockSize() int {
	if c.BlockSize == nil {
		return DefaultBlockSize
	}
	return *c.BlockSize
}

// GetThreshold returns threshold or the default.
func (c *Config) GetThreshold() float64 {
	if c.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Threshold
}

// GetWorkers returns workers, or the number of CPUs when unset or zero.
func (c *Config) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetStrictPalette returns strict_palette or false.
func (c *Config) GetStrictPalette() bool {
	return c.StrictPalette != nil && *c.StrictPalette
}

// GetDataDir returns data_dir or the default.
func (c *Config) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return DefaultDataDir
	}
	return *c.DataDir
}

// GetStore returns the store backend name or the default.
func (c *Config) GetStore() string {
	if c.Store == nil || *c.Store == "" {
		return DefaultStore
	}
	return *c.Store
}

// Overlay returns the overlay settings, falling back to
// overlay.DefaultConfig for unset fields.
func (c *Config) Overlay() overlay.Config {
	oc := overlay.DefaultConfig()
	if c.Colormap != nil && *c.Colormap != "" {
		oc.Colormap = *c.Colormap
	}
	if c.Alpha != nil {
		oc.Alpha = *c.Alpha
	}
	return oc
}

// Table returns the configured palette, or the default table when none is
// set.
func (c *Config) Table() (quantize.Table, error) {
	if c.Palette == nil {
		return quantize.DefaultTable, nil
	}
	return quantize.TableFromSlice(c.Palette)
}

// Quantizer builds the quantizer described by palette and strict_palette.
func (c *Config) Quantizer() (*quantize.Quantizer, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	return quantize.New(table, c.GetStrictPalette())
}

// Merge returns a copy of c with every field that is set in over replaced
// by over's value. A nil over returns a plain copy.
func (c *Config) Merge(over *Config) *Config {
	out := *c
	if over == nil {
		return &out
	}
	if over.BlockSize != nil {
		out.BlockSize = over.BlockSize
	}
	if over.Threshold != nil {
		out.Threshold = over.Threshold
	}
	if over.Alpha != nil {
		out.Alpha = over.Alpha
	}
	if over.Colormap != nil {
		out.Colormap = over.Colormap
	}
	if over.Workers != nil {
		out.Workers = over.Workers
	}
	if over.Palette != nil {
		out.Palette = over.Palette
	}
	if over.StrictPalette != nil {
		out.StrictPalette = over.StrictPalette
	}
	if over.DataDir != nil {
		out.DataDir = over.DataDir
	}
	if over.Store != nil {
		out.Store = over.Store
	}
	return &out
}
