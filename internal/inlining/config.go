package inlining

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ============================================================================
// 内联模式
// ============================================================================

// Mode 内联模式
type Mode int

const (
	ModeGeneral    Mode = iota // 常规模式：按频率和预算调度
	ModeRestricted             // 受限模式：只处理强制内联
	ModeStress                 // 压力模式：所有候选立即内联
)

func (m Mode) String() string {
	switch m {
	case ModeGeneral:
		return "general"
	case ModeRestricted:
		return "restricted"
	case ModeStress:
		return "stress"
	default:
		return "unknown"
	}
}

// ParseMode 解析模式名
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general", "":
		return ModeGeneral, nil
	case "restricted":
		return ModeRestricted, nil
	case "stress":
		return ModeStress, nil
	default:
		return ModeGeneral, fmt.Errorf("%w: unknown inlining mode %q", ErrInvalidConfig, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ============================================================================
// 内联配置
// ============================================================================

// MaxPolymorphismLimit 多态上限的最大允许值
const MaxPolymorphismLimit = 8

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("invalid inlining config")

// Config 内联配置
type Config struct {
	// MaxInlinedBytecodeSize 单个函数可内联的最大字节码长度
	MaxInlinedBytecodeSize int `toml:"max_inlined_bytecode_size" yaml:"max_inlined_bytecode_size"`
	// MaxInlinedBytecodeSizeSmall 不经调度、立即内联的小函数上限
	MaxInlinedBytecodeSizeSmall int `toml:"max_inlined_bytecode_size_small" yaml:"max_inlined_bytecode_size_small"`
	// MaxInlinedBytecodeSizeAbsolute 立即内联小函数时累计计数的绝对上限
	MaxInlinedBytecodeSizeAbsolute int `toml:"max_inlined_bytecode_size_absolute" yaml:"max_inlined_bytecode_size_absolute"`
	// MaxInlinedBytecodeSizeCumulative 调度内联时累计计数的上限
	MaxInlinedBytecodeSizeCumulative int `toml:"max_inlined_bytecode_size_cumulative" yaml:"max_inlined_bytecode_size_cumulative"`
	// ReserveInlineBudgetScaleFactor 预留预算系数，为后续小函数留出余量
	ReserveInlineBudgetScaleFactor float64 `toml:"reserve_inline_budget_scale_factor" yaml:"reserve_inline_budget_scale_factor"`
	// MinInliningFrequency 调用点的最低频率
	MinInliningFrequency float64 `toml:"min_inlining_frequency" yaml:"min_inlining_frequency"`
	// MaxInliningLevels 最大内联深度
	MaxInliningLevels int `toml:"max_inlining_levels" yaml:"max_inlining_levels"`
	// MaxCallPolymorphism 调用点最多考虑的目标函数个数
	MaxCallPolymorphism int `toml:"max_call_polymorphism" yaml:"max_call_polymorphism"`
	// PolymorphicInlining 是否允许多态内联
	PolymorphicInlining bool `toml:"polymorphic_inlining" yaml:"polymorphic_inlining"`
	// Mode 内联模式
	Mode Mode `toml:"mode" yaml:"mode"`
	// Trace 每次调度前输出候选列表
	Trace bool `toml:"trace" yaml:"trace"`
}

// DefaultConfig 返回默认内联配置
func DefaultConfig() *Config {
	return &Config{
		MaxInlinedBytecodeSize:           500,
		MaxInlinedBytecodeSizeSmall:      30,
		MaxInlinedBytecodeSizeAbsolute:   5000,
		MaxInlinedBytecodeSizeCumulative: 1000,
		ReserveInlineBudgetScaleFactor:   1.2,
		MinInliningFrequency:             0.15,
		MaxInliningLevels:                5,
		MaxCallPolymorphism:              4,
		PolymorphicInlining:              true,
		Mode:                             ModeGeneral,
	}
}

// Validate 检查配置是否有效
func (c *Config) Validate() error {
	var errs []error
	nonNegative := func(name string, v int) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %d", name, v))
		}
	}
	nonNegative("max_inlined_bytecode_size", c.MaxInlinedBytecodeSize)
	nonNegative("max_inlined_bytecode_size_small", c.MaxInlinedBytecodeSizeSmall)
	nonNegative("max_inlined_bytecode_size_absolute", c.MaxInlinedBytecodeSizeAbsolute)
	nonNegative("max_inlined_bytecode_size_cumulative", c.MaxInlinedBytecodeSizeCumulative)
	nonNegative("max_inlining_levels", c.MaxInliningLevels)

	if c.ReserveInlineBudgetScaleFactor < 1 {
		errs = append(errs, fmt.Errorf("reserve_inline_budget_scale_factor must be >= 1, got %g", c.ReserveInlineBudgetScaleFactor))
	}
	if c.MinInliningFrequency < 0 {
		errs = append(errs, fmt.Errorf("min_inlining_frequency must be >= 0, got %g", c.MinInliningFrequency))
	}
	if c.MaxCallPolymorphism < 1 || c.MaxCallPolymorphism > MaxPolymorphismLimit {
		errs = append(errs, fmt.Errorf("max_call_polymorphism must be in [1, %d], got %d", MaxPolymorphismLimit, c.MaxCallPolymorphism))
	}
	switch c.Mode {
	case ModeGeneral, ModeRestricted, ModeStress:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %d", c.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Clone 返回配置的副本
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// LoadConfig 从 TOML 文件加载配置，未出现的字段保持默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig 解析 TOML 配置，拒绝未知字段
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	content := generateConfigWithComments(c)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MarshalTOML 返回不带注释的 TOML 编码
func (c *Config) MarshalTOML() ([]byte, error) {
	return toml.Marshal(c)
}

// generateConfigWithComments 生成带注释的配置文件内容
func generateConfigWithComments(c *Config) string {
	var sb strings.Builder

	sb.WriteString("# 单个函数可内联的最大字节码长度\n")
	sb.WriteString(fmt.Sprintf("max_inlined_bytecode_size = %d\n\n", c.MaxInlinedBytecodeSize))
	sb.WriteString("# 立即内联的小函数字节码上限\n")
	sb.WriteString(fmt.Sprintf("max_inlined_bytecode_size_small = %d\n\n", c.MaxInlinedBytecodeSizeSmall))
	sb.WriteString("# 立即内联小函数时累计计数的绝对上限\n")
	sb.WriteString(fmt.Sprintf("max_inlined_bytecode_size_absolute = %d\n\n", c.MaxInlinedBytecodeSizeAbsolute))
	sb.WriteString("# 调度内联时累计计数的上限\n")
	sb.WriteString(fmt.Sprintf("max_inlined_bytecode_size_cumulative = %d\n\n", c.MaxInlinedBytecodeSizeCumulative))
	sb.WriteString("# 预留预算系数\n")
	sb.WriteString(fmt.Sprintf("reserve_inline_budget_scale_factor = %s\n\n", formatFloat(c.ReserveInlineBudgetScaleFactor)))
	sb.WriteString("# 调用点的最低频率\n")
	sb.WriteString(fmt.Sprintf("min_inlining_frequency = %s\n\n", formatFloat(c.MinInliningFrequency)))
	sb.WriteString("# 最大内联深度\n")
	sb.WriteString(fmt.Sprintf("max_inlining_levels = %d\n\n", c.MaxInliningLevels))
	sb.WriteString("# 调用点最多考虑的目标函数个数\n")
	sb.WriteString(fmt.Sprintf("max_call_polymorphism = %d\n\n", c.MaxCallPolymorphism))
	sb.WriteString("# 是否允许多态内联\n")
	sb.WriteString(fmt.Sprintf("polymorphic_inlining = %t\n\n", c.PolymorphicInlining))
	sb.WriteString("# 内联模式：general / restricted / stress\n")
	sb.WriteString(fmt.Sprintf("mode = %q\n\n", c.Mode.String()))
	sb.WriteString("# 调度前输出候选列表\n")
	sb.WriteString(fmt.Sprintf("trace = %t\n", c.Trace))

	return sb.String()
}

// formatFloat 保证输出是 TOML 浮点数字面量
func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
