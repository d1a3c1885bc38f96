// Package config holds the four configuration flags the jit core
// recognizes (§6), decodable from YAML the way the teacher repo decodes
// its own server configuration.
package config

import (
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Config carries the flags a Plan or Driver consults while running.
type Config struct {
	// EnableLazyLoad allows Compute/Filter to defer column reads per §4.3.
	EnableLazyLoad bool `yaml:"enable_lazy_load"`
	// EnableLogicalPruning allows the And/Or short-circuit per §4.2.
	EnableLogicalPruning bool `yaml:"enable_logical_pruning"`
	// EnableMVCC includes Validate in the operator chain.
	EnableMVCC bool `yaml:"enable_mvcc"`
	// ChunkSize is the output chunk rowcount target. The driver does not
	// read it: it finalizes one output chunk per input chunk, whatever its
	// row count.
	ChunkSize uint32 `yaml:"chunk_size"`
}

// Default returns the configuration spec.md describes as the baseline: all
// optimizations on, MVCC enforced, a 2048-row output chunk target.
func Default() Config {
	return Config{
		EnableLazyLoad:       true,
		EnableLogicalPruning: true,
		EnableMVCC:           true,
		ChunkSize:            2048,
	}
}

// Load decodes a Config from a YAML file at path, falling back to Default
// for any field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
