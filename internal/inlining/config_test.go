package inlining

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

// TestValidate 测试配置校验
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative size", func(c *Config) { c.MaxInlinedBytecodeSize = -1 }},
		{"negative cumulative", func(c *Config) { c.MaxInlinedBytecodeSizeCumulative = -1 }},
		{"scale factor below one", func(c *Config) { c.ReserveInlineBudgetScaleFactor = 0.5 }},
		{"negative frequency", func(c *Config) { c.MinInliningFrequency = -0.1 }},
		{"zero polymorphism", func(c *Config) { c.MaxCallPolymorphism = 0 }},
		{"polymorphism over limit", func(c *Config) { c.MaxCallPolymorphism = MaxPolymorphismLimit + 1 }},
		{"unknown mode", func(c *Config) { c.Mode = Mode(42) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestMode(t *testing.T) {
	for _, mode := range []Mode{ModeGeneral, ModeRestricted, ModeStress} {
		text, err := mode.MarshalText()
		require.NoError(t, err)

		var parsed Mode
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, mode, parsed)
	}

	_, err := ParseMode("turbo")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	m, err := ParseMode(" Stress ")
	require.NoError(t, err)
	assert.Equal(t, ModeStress, m)
}

// TestParseConfigOverlaysDefaults 测试未出现的字段保持默认值
func TestParseConfigOverlaysDefaults(t *testing.T) {
	config, err := ParseConfig([]byte("max_call_polymorphism = 2\nmode = \"stress\"\n"))
	require.NoError(t, err)

	want := DefaultConfig()
	want.MaxCallPolymorphism = 2
	want.Mode = ModeStress
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("ParseConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "max_inlined_size = 3\n"},
		{"bad mode", "mode = \"turbo\"\n"},
		{"invalid value", "max_call_polymorphism = 99\n"},
		{"syntax", "max_call_polymorphism = \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

// TestSaveAndLoadConfig 测试保存后重新加载得到相同的配置
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inlining.toml")

	config := DefaultConfig()
	config.MaxInlinedBytecodeSizeCumulative = 750
	config.ReserveInlineBudgetScaleFactor = 1
	config.MinInliningFrequency = 0.5
	config.PolymorphicInlining = false
	config.Mode = ModeRestricted
	config.Trace = true
	require.NoError(t, config.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# 内联模式")
	assert.Contains(t, string(data), "reserve_inline_budget_scale_factor = 1.0\n")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	if diff := cmp.Diff(config, loaded); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMarshalTOML(t *testing.T) {
	data, err := DefaultConfig().MarshalTOML()
	require.NoError(t, err)

	parsed, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), parsed)
}
