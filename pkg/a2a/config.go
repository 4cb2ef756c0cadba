// Copyright 2025 Kadir Pekel
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

package a2a

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the subset of AGENT_* environment variables the A2A transport
// needs. It is resolved once at agent startup and passed to every call.
type Config struct {
	AllowedHosts     []string
	MinPort          int
	MaxPort          int
	HTTPTimeout      time.Duration
	DiscoveryTimeout time.Duration
	APIKey           string
	AllowPrivateNets bool
}

// ConfigFromEnv reads AGENT_ALLOWED_HOSTS, AGENT_MIN_PORT, AGENT_MAX_PORT,
// AGENT_HTTP_TIMEOUT, AGENT_DISCOVERY_TIMEOUT, AGENT_API_KEY and an opt-in
// AGENT_ALLOW_PRIVATE_NETS escape hatch for deployments that deliberately
// run peers on private addresses (e.g. local or SSH-launched jobs).
func ConfigFromEnv() Config {
	cfg := Config{
		MinPort:          1,
		MaxPort:          65535,
		HTTPTimeout:      30 * time.Second,
		DiscoveryTimeout: 10 * time.Second,
	}

	if v := os.Getenv("AGENT_ALLOWED_HOSTS"); v != "" {
		for _, h := range strings.Split(v, ",") {
			h = strings.TrimSpace(h)
			if h != "" {
				cfg.AllowedHosts = append(cfg.AllowedHosts, h)
			}
		}
	}
	if v := os.Getenv("AGENT_MIN_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinPort = n
		}
	}
	if v := os.Getenv("AGENT_MAX_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPort = n
		}
	}
	if v := os.Getenv("AGENT_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		} else if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTPTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("AGENT_DISCOVERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DiscoveryTimeout = d
		} else if n, err := strconv.Atoi(v); err == nil {
			cfg.DiscoveryTimeout = time.Duration(n) * time.Second
		}
	}
	cfg.APIKey = os.Getenv("AGENT_API_KEY")
	cfg.AllowPrivateNets = os.Getenv("AGENT_ALLOW_PRIVATE_NETS") == "true"

	return cfg
}
