// Package config loads the non-secret options table of spec.md §6
// (public base URL, speech/language provider names and defaults, owner
// phone number, listen port) from a structured YAML file; telephony
// credentials are not part of it.
// Grounded on the yaml.v3 decode-then-validate shape of
// internal/config/loader.go in the retrieval pack. Secrets (API keys,
// auth tokens) stay in the environment, loaded separately via godotenv by
// cmd/agentd.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the structured, non-secret options table for the telephony
// agent process.
type Config struct {
	Server struct {
		ListenAddr   string `yaml:"listen_addr"`
		PublicURL    string `yaml:"public_base_url"`
		OwnerNumber  string `yaml:"owner_number"`
	} `yaml:"server"`

	Providers struct {
		STT   string `yaml:"stt"`
		LLM   string `yaml:"llm"`
		TTS   string `yaml:"tts"`
	} `yaml:"providers"`

	Agent struct {
		Language                   string  `yaml:"language"`
		Voice                      string  `yaml:"voice"`
		MaxContextMessages         int     `yaml:"max_context_messages"`
		TTSDrainTimeoutSeconds     float64 `yaml:"tts_drain_timeout_seconds"`
		TransferSettleSeconds      float64 `yaml:"transfer_settle_seconds"`
		EnableActivityInterruption bool    `yaml:"enable_activity_interruption"`
	} `yaml:"agent"`

	Appointment struct {
		DatabasePath string `yaml:"database_path"`
	} `yaml:"appointment"`
}

// Load reads and validates the YAML config at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r and validates the result; useful in
// tests constructing configs from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Agent.Language == "" {
		cfg.Agent.Language = "en"
	}
	if cfg.Agent.Voice == "" {
		cfg.Agent.Voice = "F1"
	}
	if cfg.Agent.MaxContextMessages == 0 {
		cfg.Agent.MaxContextMessages = 40
	}
	if cfg.Agent.TTSDrainTimeoutSeconds == 0 {
		cfg.Agent.TTSDrainTimeoutSeconds = 10
	}
	if cfg.Agent.TransferSettleSeconds == 0 {
		cfg.Agent.TransferSettleSeconds = 3.5
	}
	if cfg.Appointment.DatabasePath == "" {
		cfg.Appointment.DatabasePath = "appointments.db"
	}
}

// Validate checks that cfg contains a coherent set of values, joining all
// failures into a single error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.PublicURL == "" {
		errs = append(errs, errors.New("server.public_base_url is required (used to build the telephony media-stream callback URL)"))
	}
	if cfg.Providers.STT == "" {
		errs = append(errs, errors.New("providers.stt is required"))
	}
	if cfg.Providers.LLM == "" {
		errs = append(errs, errors.New("providers.llm is required"))
	}
	if cfg.Providers.TTS == "" {
		errs = append(errs, errors.New("providers.tts is required"))
	}
	if cfg.Agent.TTSDrainTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("agent.tts_drain_timeout_seconds %.2f must be non-negative", cfg.Agent.TTSDrainTimeoutSeconds))
	}
	if cfg.Agent.TransferSettleSeconds < 0 {
		errs = append(errs, fmt.Errorf("agent.transfer_settle_seconds %.2f must be non-negative", cfg.Agent.TransferSettleSeconds))
	}

	return errors.Join(errs...)
}
