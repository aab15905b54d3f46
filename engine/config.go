package engine

import "fmt"

// Config carries the tunables of the decode pipeline.
type Config struct {
	// ChunkSize is the read size used by the MARC21 record splitter.
	ChunkSize int
	// EnablePrefilter turns the literal condition prefilter on. It is only
	// built when it can be proven sound for the compiled scheme.
	EnablePrefilter bool
}

// DefaultConfig returns the configuration used when the caller has no
// opinion: 4 KiB chunked reads and the prefilter enabled.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       4096,
		EnablePrefilter: true,
	}
}

// Validate rejects configurations the splitters cannot work with.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size %d", c.ChunkSize)
	}
	return nil
}
