// Copyright 2023 Paolo Fabio Zaino
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// The config package contains the configuration file parsing logic.
package config

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	// Type is either "json" (flat-file store) or "postgres"
	Type    string `yaml:"type"`
	DataDir string `yaml:"data_dir"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// FetchConfig configures the resilient transport.
type FetchConfig struct {
	// Delay is the mandatory pause between requests, in seconds
	Delay float64 `yaml:"delay"`
	// Timeout is the per-request timeout, in seconds
	Timeout int `yaml:"timeout"`
	// Retries is the per-request attempt budget for retryable statuses
	Retries int `yaml:"retries"`
	// Backoff is the initial retry wait, in seconds, doubled per attempt
	Backoff float64 `yaml:"backoff"`
	// SoftBlockWait is the wait after a soft-block response, in seconds
	SoftBlockWait float64 `yaml:"soft_block_wait"`
	Proxy         string  `yaml:"proxy"`
	// UserAgentType selects the user agent pool ("desktop" or "mobile")
	UserAgentType string `yaml:"user_agent_type"`
}

// SourceConfig holds per-source overrides.
type SourceConfig struct {
	Enabled *bool `yaml:"enabled"`
	// Delay overrides Fetch.Delay for this source, in seconds
	Delay float64 `yaml:"delay"`
	// City is the region slug for directory sources that need one (2GIS)
	City string `yaml:"city"`
	// Limit caps the number of records returned per search
	Limit int `yaml:"limit"`
}

// Config represents the structure of the configuration file
type Config struct {
	Storage    StorageConfig           `yaml:"storage"`
	Fetch      FetchConfig             `yaml:"fetch"`
	Sources    map[string]SourceConfig `yaml:"sources"`
	OS         string                  `yaml:"os"`
	DebugLevel int                     `yaml:"debug_level"`
}

// SourceEnabled reports whether the named source is enabled. Sources are
// enabled unless the configuration says otherwise.
func (c *Config) SourceEnabled(name string) bool {
	sc, ok := c.Sources[name]
	if !ok || sc.Enabled == nil {
		return true
	}
	return *sc.Enabled
}

// SourceDelay returns the inter-request delay for the named source, falling
// back to the global fetch delay.
func (c *Config) SourceDelay(name string) float64 {
	if sc, ok := c.Sources[name]; ok && sc.Delay > 0 {
		return sc.Delay
	}
	return c.Fetch.Delay
}
