package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("ADJ_TEST_SET", "from-env")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "key: ${ADJ_TEST_SET}", "key: from-env"},
		{"set variable ignores default", "key: ${ADJ_TEST_SET:fallback}", "key: from-env"},
		{"default used", "key: ${ADJ_TEST_UNSET:fallback}", "key: fallback"},
		{"empty default", "key: ${ADJ_TEST_UNSET:}", "key: "},
		{"url default keeps colons", "base: ${ADJ_TEST_UNSET:https://integrate.api.nvidia.com/v1}", "base: https://integrate.api.nvidia.com/v1"},
		{"unset without default kept", "key: ${ADJ_TEST_UNSET}", "key: ${ADJ_TEST_UNSET}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.MaxPlanAttempts = 3
	cfg.LLM.Timeout = 1
	assert.NoError(t, cfg.Validate())

	cfg.Pipeline.MaxPlanAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateDefaultJWTSecret(t *testing.T) {
	tests := []struct {
		env     string
		secret  string
		wantErr bool
	}{
		{"development", DefaultJWTSecret, false},
		{"production", DefaultJWTSecret, true},
		{"staging", DefaultJWTSecret, true},
		{"", DefaultJWTSecret, true},
		{"production", "a-real-secret", false},
		{"production", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.secret, func(t *testing.T) {
			cfg := &Config{}
			cfg.Pipeline.MaxPlanAttempts = 3
			cfg.LLM.Timeout = 1
			cfg.App.Env = tt.env
			cfg.Security.JWT.Secret = tt.secret
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
