// Package config loads anneal's runtime configuration from a TOML file,
// overlaying values onto built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/anneal-io/anneal/internal/engine"
)

// Config is the resolved runtime configuration.
type Config struct {
	Engine   Engine
	Log      Log
	History  History
	Provider Provider
}

type Engine struct {
	Parallelism int
	PollInitial time.Duration
	PollMax     time.Duration
	Timeout     time.Duration
}

type Log struct {
	Level string
	JSON  bool
}

type History struct {
	Path string
}

// Provider selects and configures the provider client backing a run.
type Provider struct {
	// Type is "sim" or "azure".
	Type  string
	Azure Azure
}

// Azure configures the ARM-backed provider.
type Azure struct {
	SubscriptionID string
	ResourceGroup  string
	Location       string

	// Kinds maps a manifest kind to its ARM resource type and API
	// version, e.g. keyvault -> Microsoft.KeyVault/vaults.
	Kinds map[string]AzureKind
}

type AzureKind struct {
	ResourceType string
	APIVersion   string
}

// Options converts the engine section for engine.New.
func (e Engine) Options() engine.Options {
	return engine.Options{
		Parallelism: e.Parallelism,
		PollInitial: e.PollInitial,
		PollMax:     e.PollMax,
		Timeout:     e.Timeout,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: Engine{
			PollInitial: engine.DefaultPollInitial,
			PollMax:     engine.DefaultPollMax,
			Timeout:     engine.DefaultTimeout,
		},
		Log:      Log{Level: "info"},
		History:  History{Path: ".anneal/history.db"},
		Provider: Provider{Type: "sim"},
	}
}

// fileConfig is the on-disk shape. Durations are strings ("30s", "10m").
type fileConfig struct {
	Engine struct {
		Parallelism int    `toml:"parallelism"`
		PollInitial string `toml:"poll_initial"`
		PollMax     string `toml:"poll_max"`
		Timeout     string `toml:"timeout"`
	} `toml:"engine"`
	Log struct {
		Level string `toml:"level"`
		JSON  bool   `toml:"json"`
	} `toml:"log"`
	History struct {
		Path string `toml:"path"`
	} `toml:"history"`
	Provider struct {
		Type  string `toml:"type"`
		Azure struct {
			SubscriptionID string                   `toml:"subscription_id"`
			ResourceGroup  string                   `toml:"resource_group"`
			Location       string                   `toml:"location"`
			Kinds          map[string]fileAzureKind `toml:"kinds"`
		} `toml:"azure"`
	} `toml:"provider"`
}

type fileAzureKind struct {
	ResourceType string `toml:"type"`
	APIVersion   string `toml:"api_version"`
}

// Load reads path and overlays defined keys onto the defaults. Keys absent
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("engine", "parallelism") {
		cfg.Engine.Parallelism = raw.Engine.Parallelism
	}
	if meta.IsDefined("engine", "poll_initial") {
		if cfg.Engine.PollInitial, err = parseDuration(raw.Engine.PollInitial, "engine.poll_initial"); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("engine", "poll_max") {
		if cfg.Engine.PollMax, err = parseDuration(raw.Engine.PollMax, "engine.poll_max"); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("engine", "timeout") {
		if cfg.Engine.Timeout, err = parseDuration(raw.Engine.Timeout, "engine.timeout"); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = raw.Log.Level
	}
	if meta.IsDefined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}
	if meta.IsDefined("history", "path") {
		cfg.History.Path = raw.History.Path
	}
	if meta.IsDefined("provider", "type") {
		cfg.Provider.Type = raw.Provider.Type
	}
	if meta.IsDefined("provider", "azure") {
		cfg.Provider.Azure = Azure{
			SubscriptionID: raw.Provider.Azure.SubscriptionID,
			ResourceGroup:  raw.Provider.Azure.ResourceGroup,
			Location:       raw.Provider.Azure.Location,
		}
		if len(raw.Provider.Azure.Kinds) > 0 {
			cfg.Provider.Azure.Kinds = make(map[string]AzureKind, len(raw.Provider.Azure.Kinds))
			for kind, spec := range raw.Provider.Azure.Kinds {
				cfg.Provider.Azure.Kinds[kind] = AzureKind{
					ResourceType: spec.ResourceType,
					APIVersion:   spec.APIVersion,
				}
			}
		}
	}

	return cfg, nil
}

func parseDuration(s, key string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	return d, nil
}
