package bootstrap

import (
	"testing"

	"github.com/seqdepot/seqdepot/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledSet(modes ...config.ServiceMode) map[config.ServiceMode]bool {
	set := make(map[config.ServiceMode]bool, len(modes))
	for _, mode := range modes {
		set[mode] = true
	}
	return set
}

func TestErrorChannelSizing(t *testing.T) {
	tests := []struct {
		name       string
		enabled    map[config.ServiceMode]bool
		capacity   int
		bufferSize int
	}{
		{"no services", enabledSet(), 0, 1},
		{"http only", enabledSet(config.ServiceModeHTTP), 1, 2},
		{"reaper only", enabledSet(config.ServiceModeReaper), 1, 2},
		{"http and reaper", enabledSet(config.ServiceModeHTTP, config.ServiceModeReaper), 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.capacity, errorChannelCapacity(tt.enabled))
			// One slot beyond capacity so the shutdown path never blocks
			// a service goroutine reporting its exit error.
			assert.Equal(t, tt.bufferSize, errorChannelBufferSize(tt.enabled))
		})
	}
}

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))

	cfg := &config.AppConfig{Services: ""}
	require.Error(t, ValidateServiceConfig(cfg))

	cfg.Services = "bogus"
	require.Error(t, ValidateServiceConfig(cfg))

	cfg.Services = "http,reaper"
	assert.NoError(t, ValidateServiceConfig(cfg))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Empty(t, GetEnabledServices(nil))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))

	names := GetEnabledServices(&config.AppConfig{Services: "reaper,http"})
	assert.Equal(t, []string{"http", "reaper"}, names)
}
