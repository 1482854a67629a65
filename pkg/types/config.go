package types

import (
	"errors"
	"unicode/utf8"
)

// Config holds the CLI settings read from config.yaml.
type Config struct {
	DataDir         string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Delimiter       string `json:"delimiter" yaml:"delimiter" mapstructure:"delimiter"`
	CaseSensitive   bool   `json:"case_sensitive" yaml:"case_sensitive" mapstructure:"case_sensitive"`
	RefreshStrategy string `json:"refresh_strategy" yaml:"refresh_strategy" mapstructure:"refresh_strategy"`
}

// Supported refresh strategy names.
const (
	StrategyClear = "clear"
	StrategyMerge = "merge"
)

// Config validation errors.
var (
	ErrDelimiterInvalid       = errors.New("delimiter must be a single character")
	ErrRefreshStrategyUnknown = errors.New("unknown refresh strategy")
)

// knownStrategies lists the strategies that Validate accepts.
var knownStrategies = map[string]RefreshStrategy{
	StrategyClear: RefreshClear,
	StrategyMerge: RefreshMerge,
}

// Validate checks that the Config is well-formed. Empty values are allowed and
// fall back to defaults.
func (c Config) Validate() error {
	if c.Delimiter != "" && utf8.RuneCountInString(c.Delimiter) != 1 {
		return ErrDelimiterInvalid
	}
	if c.RefreshStrategy != "" {
		if _, ok := knownStrategies[c.RefreshStrategy]; !ok {
			return ErrRefreshStrategyUnknown
		}
	}
	return nil
}

// Strategy returns the configured refresh strategy, RefreshClear by default.
func (c Config) Strategy() RefreshStrategy {
	return knownStrategies[c.RefreshStrategy]
}

// DelimiterRune returns the configured delimiter, ',' by default.
func (c Config) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
