package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// clientSettings is the workspace/didChangeConfiguration payload. Only the
// fields that are present override the current configuration.
type clientSettings struct {
	FishLS *struct {
		Diagnostics *struct {
			DisabledCodes     []int   `json:"disabledCodes"`
			StrictConditional *bool   `json:"strictConditionalCommandWarnings"`
			MaxDiagnostics    *int    `json:"maxDiagnostics"`
			Debounce          *string `json:"debounce"`
		} `json:"diagnostics"`
		EnabledHandlers  []string `json:"enabledHandlers"`
		DisabledHandlers []string `json:"disabledHandlers"`
	} `json:"fishls"`
}

// ApplySettings returns a copy of base with the client settings in raw
// applied. An empty payload returns base unchanged.
func ApplySettings(base *Config, raw json.RawMessage) (*Config, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	var settings clientSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if settings.FishLS == nil {
		return base, nil
	}
	cfg := base.Clone()
	s := settings.FishLS
	if d := s.Diagnostics; d != nil {
		if d.DisabledCodes != nil {
			cfg.Diagnostics.DisabledCodes = d.DisabledCodes
		}
		if d.StrictConditional != nil {
			cfg.Diagnostics.StrictConditional = *d.StrictConditional
		}
		if d.MaxDiagnostics != nil {
			cfg.Diagnostics.MaxDiagnostics = *d.MaxDiagnostics
		}
		if d.Debounce != nil {
			v, err := time.ParseDuration(*d.Debounce)
			if err != nil {
				return nil, fmt.Errorf("invalid settings: debounce: %w", err)
			}
			cfg.Diagnostics.Debounce = Duration{v}
		}
	}
	if s.EnabledHandlers != nil {
		cfg.Handlers.Enabled = s.EnabledHandlers
	}
	if s.DisabledHandlers != nil {
		cfg.Handlers.Disabled = s.DisabledHandlers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}
