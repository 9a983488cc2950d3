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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfig = `
storage:
  type: postgres
  host: db.internal
  user: ${DB_USER}
  password: ${DB_PASSWORD}
fetch:
  delay: 2.5
  retries: 5
sources:
  uzum:
    delay: 3.0
    limit: 10
  google_maps:
    enabled: false
  2gis:
    city: novosibirsk
debug_level: 1
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Test LoadConfig
func TestLoadConfig(t *testing.T) {
	// Set the environment variables
	os.Setenv("DB_USER", "testuser")
	os.Setenv("DB_PASSWORD", "testpassword")

	path := writeTestConfig(t, testConfig)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned an error: %v", err)
	}

	if IsEmpty(config) {
		t.Error("No config was loaded")
	}

	// Verify that the environment variables are read correctly
	if config.Storage.User != "testuser" {
		t.Errorf("Expected testuser, got %v", config.Storage.User)
	}
	if config.Storage.Password != "testpassword" {
		t.Errorf("Expected testpassword, got %v", config.Storage.Password)
	}

	if config.Storage.Type != "postgres" {
		t.Errorf("Expected postgres, got %v", config.Storage.Type)
	}
	if config.Fetch.Delay != 2.5 {
		t.Errorf("Expected delay 2.5, got %v", config.Fetch.Delay)
	}
	if config.Fetch.Retries != 5 {
		t.Errorf("Expected 5 retries, got %v", config.Fetch.Retries)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTestConfig(t, "sources: {}\n")
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned an error: %v", err)
	}

	if config.Storage.Type != "json" {
		t.Errorf("Expected default storage type json, got %v", config.Storage.Type)
	}
	if config.Storage.DataDir != "data" {
		t.Errorf("Expected default data dir, got %v", config.Storage.DataDir)
	}
	if config.Fetch.Delay != 1.0 {
		t.Errorf("Expected default delay 1.0, got %v", config.Fetch.Delay)
	}
	if config.Fetch.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %v", config.Fetch.Timeout)
	}
	if config.Fetch.Retries != 3 {
		t.Errorf("Expected default 3 retries, got %v", config.Fetch.Retries)
	}
	if config.Fetch.SoftBlockWait != 30.0 {
		t.Errorf("Expected default soft block wait 30.0, got %v", config.Fetch.SoftBlockWait)
	}
	if config.Fetch.UserAgentType != "desktop" {
		t.Errorf("Expected default user agent type desktop, got %v", config.Fetch.UserAgentType)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected an error for a missing configuration file")
	}
}

func TestSourceOverrides(t *testing.T) {
	path := writeTestConfig(t, testConfig)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if !config.SourceEnabled("uzum") {
		t.Error("uzum should be enabled (no enabled key means enabled)")
	}
	if config.SourceEnabled("google_maps") {
		t.Error("google_maps is explicitly disabled")
	}
	if !config.SourceEnabled("never-configured") {
		t.Error("unconfigured sources default to enabled")
	}

	if got := config.SourceDelay("uzum"); got != 3.0 {
		t.Errorf("Expected uzum delay 3.0, got %v", got)
	}
	if got := config.SourceDelay("wildberries"); got != 2.5 {
		t.Errorf("Expected fallback to fetch delay 2.5, got %v", got)
	}

	if config.Sources["2gis"].City != "novosibirsk" {
		t.Errorf("Expected 2gis city novosibirsk, got %v", config.Sources["2gis"].City)
	}
	if config.Sources["uzum"].Limit != 10 {
		t.Errorf("Expected uzum limit 10, got %v", config.Sources["uzum"].Limit)
	}
}
