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

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v2"
)

// fileExists checks if a file exists at the given filename.
// It returns true if the file exists and is not a directory, and false otherwise.
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// interpolateEnvVars replaces occurrences of `${VAR}` or `$VAR` in the input string
// with the value of the VAR environment variable.
func interpolateEnvVars(input string) string {
	envVarPattern := regexp.MustCompile(`\$\{?(\w+)\}?`)
	return envVarPattern.ReplaceAllStringFunc(input, func(varName string) string {
		// Trim ${ and } from varName
		trimmedVarName := varName
		trimmedVarName = strings.TrimPrefix(trimmedVarName, "${")
		trimmedVarName = strings.TrimPrefix(trimmedVarName, "$")
		trimmedVarName = strings.TrimSuffix(trimmedVarName, "}")

		// Return the environment variable value
		return os.Getenv(trimmedVarName)
	})
}

// getConfigFile reads and unmarshals a configuration file with the given name.
// It checks if the file exists, reads its contents, and unmarshals it into a Config struct.
// If the file does not exist or an error occurs during reading or unmarshaling, an error is returned.
func getConfigFile(confName string) (Config, error) {
	// Check if the configuration file exists
	if !fileExists(confName) {
		return Config{}, fmt.Errorf("file does not exist: %s", confName)
	}

	// Read the configuration file
	data, err := os.ReadFile(confName)
	if err != nil {
		return Config{}, err
	}

	// Interpolate environment variables
	interpolatedData := interpolateEnvVars(string(data))

	// If the configuration file has been found and is not empty, unmarshal it
	var config Config
	if strings.TrimSpace(interpolatedData) != "" {
		err = yaml.Unmarshal([]byte(interpolatedData), &config)
	}
	return config, err
}

// LoadConfig is responsible for loading the configuration file
// and return the Config struct
func LoadConfig(confName string) (Config, error) {
	// Get the configuration file
	config, err := getConfigFile(confName)

	// Set the OS variable
	config.OS = runtime.GOOS

	// Set default values
	SetDefaults(&config)

	return config, err
}

// SetDefaults fills in the default values for everything the configuration
// file left unset.
func SetDefaults(config *Config) {
	if config.Storage.Type == "" {
		config.Storage.Type = "json"
	}

	if config.Storage.DataDir == "" {
		config.Storage.DataDir = "data"
	}

	if config.Storage.Host == "" {
		config.Storage.Host = "localhost"
	}

	if config.Storage.Port == 0 {
		config.Storage.Port = 5432
	}

	if config.Storage.User == "" {
		config.Storage.User = "postgres"
	}

	if config.Storage.Password == "" {
		config.Storage.Password = "postgres"
	}

	if config.Storage.DBName == "" {
		config.Storage.DBName = "MarketGrab"
	}

	if config.Storage.SSLMode == "" {
		config.Storage.SSLMode = "disable"
	}

	if config.Fetch.Delay == 0 {
		config.Fetch.Delay = 1.0
	}

	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 30
	}

	if config.Fetch.Retries == 0 {
		config.Fetch.Retries = 3
	}

	if config.Fetch.Backoff == 0 {
		config.Fetch.Backoff = 1.0
	}

	if config.Fetch.SoftBlockWait == 0 {
		config.Fetch.SoftBlockWait = 30.0
	}

	if config.Fetch.UserAgentType == "" {
		config.Fetch.UserAgentType = "desktop"
	}
}

// IsEmpty checks if the given config is empty.
// It returns true if the config is empty, false otherwise.
func IsEmpty(config Config) bool {
	return reflect.DeepEqual(config, Config{})
}
