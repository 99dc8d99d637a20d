package core

import (
	"strings"
	"testing"
)

func TestRegistryConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig(t)
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	tests := map[string]struct {
		modify       func(c *RegistryConfig)
		wantContains string
	}{
		"empty data dir": {
			modify:       func(c *RegistryConfig) { c.DataDir = "" },
			wantContains: "data directory",
		},
		"zero operation timeout": {
			modify:       func(c *RegistryConfig) { c.OperationTimeout = 0 },
			wantContains: "operation timeout",
		},
		"negative close timeout": {
			modify:       func(c *RegistryConfig) { c.CloseTimeout = -1 },
			wantContains: "close timeout",
		},
		"zero shutdown drain timeout": {
			modify:       func(c *RegistryConfig) { c.ShutdownDrainTimeout = 0 },
			wantContains: "shutdown drain timeout",
		},
		"zero lock timeout": {
			modify:       func(c *RegistryConfig) { c.LockTimeout = 0 },
			wantContains: "lock timeout",
		},
		"zero upload timeout": {
			modify:       func(c *RegistryConfig) { c.UploadTimeout = 0 },
			wantContains: "upload timeout",
		},
		"nil catalog": {
			modify:       func(c *RegistryConfig) { c.Catalog = nil },
			wantContains: "engine catalog",
		},
		"nil id generator": {
			modify:       func(c *RegistryConfig) { c.IDGenerator = nil },
			wantContains: "id generator",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig(t)
			tc.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantContains) {
				t.Errorf("error %q does not contain %q", err, tc.wantContains)
			}
		})
	}

	t.Run("multiple violations are joined", func(t *testing.T) {
		t.Parallel()
		err := RegistryConfig{}.Validate()
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		for _, want := range []string{"data directory", "operation timeout", "engine catalog"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not contain %q", err, want)
			}
		}
	})
}

func TestNewRegistry_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()
	requirePanicContains(t, func() {
		NewRegistry(RegistryConfig{})
	}, "invalid registry config")
}
