package loader

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the declarative configuration of a Loader.
// Zero-valued fields keep their defaults when a file is parsed on top of DefaultConfig.
type Config struct {
	// ExecutionContext selects the fetcher the Loader builds when none is injected.
	ExecutionContext ExecutionContext `yaml:"execution_context"`

	// Workers is the desktop worker pool size.
	Workers int `yaml:"workers"`

	// AllowRemote lets the desktop fetcher reach http(s) references.
	AllowRemote bool `yaml:"allow_remote"`

	// UserAgent is sent with every HTTP request.
	UserAgent string `yaml:"user_agent"`

	// BaseURL is the location relative documents resolve against in the sandbox.
	BaseURL string `yaml:"base_url"`

	// Profile records per-phase timings for every import.
	Profile bool `yaml:"profile"`

	// GenerateNormals synthesizes normals and tangents for triangle primitives that lack them.
	GenerateNormals bool `yaml:"generate_normals"`
}

// DefaultConfig returns the configuration used when none is supplied.
// The execution context follows the build target: sandboxed under js/wasm, desktop otherwise.
//
// Returns:
//   - Config: the defaults
func DefaultConfig() Config {
	return Config{
		ExecutionContext: defaultExecutionContext,
		Workers:          max(runtime.NumCPU()-1, 1),
	}
}

// LoadConfig reads a YAML configuration file.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the parsed configuration layered over DefaultConfig
//   - error: error if the file cannot be read or is invalid
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses YAML configuration bytes.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the parsed configuration layered over DefaultConfig
//   - error: error if the YAML is malformed or a value is out of range
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
//
// Returns:
//   - error: error describing the first invalid value
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.BaseURL != "" && !isRemoteBase(c.BaseURL) {
		return fmt.Errorf("base_url must be an http or https URL, got %q", c.BaseURL)
	}
	if c.ExecutionContext == ExecutionSandboxed && c.AllowRemote {
		return fmt.Errorf("allow_remote applies to the desktop execution context only")
	}
	return nil
}

// NewFetcher builds the ResourceFetcher described by the configuration.
//
// Returns:
//   - ResourceFetcher: a desktop or sandboxed fetcher
func (c Config) NewFetcher() ResourceFetcher {
	if c.ExecutionContext == ExecutionSandboxed {
		return NewSandboxFetcher(WithSandboxUserAgent(c.UserAgent))
	}
	options := []DesktopFetcherOption{WithDesktopWorkers(c.Workers)}
	if c.AllowRemote {
		options = append(options, WithRemoteAccess(nil, c.UserAgent))
	}
	return NewDesktopFetcher(options...)
}

// String renders the configuration as YAML.
func (c Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimSpace(string(out))
}
