package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty config is valid",
			config:  Config{},
			wantErr: nil,
		},
		{
			name:    "multi-character delimiter returns ErrDelimiterInvalid",
			config:  Config{Delimiter: ";;"},
			wantErr: ErrDelimiterInvalid,
		},
		{
			name:    "unknown refresh strategy returns ErrRefreshStrategyUnknown",
			config:  Config{RefreshStrategy: "replace"},
			wantErr: ErrRefreshStrategyUnknown,
		},
		{
			name:    "tab delimiter with merge strategy",
			config:  Config{Delimiter: "\t", RefreshStrategy: StrategyMerge},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	assert.Equal(t, ',', c.DelimiterRune())
	assert.Equal(t, RefreshClear, c.Strategy())

	c = Config{Delimiter: ";", RefreshStrategy: StrategyMerge}
	assert.Equal(t, ';', c.DelimiterRune())
	assert.Equal(t, RefreshMerge, c.Strategy())
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in     string
		want   Direction
		wantOK bool
	}{
		{"", Ascending, true},
		{"asc", Ascending, true},
		{"descending", Descending, true},
		{"none", Unsorted, true},
		{"sideways", Unsorted, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDirection(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "changed", DataChanged.String())
	assert.Equal(t, "inserted[2,4]", Change{Kind: Inserted, From: 2, To: 4}.String())
}
