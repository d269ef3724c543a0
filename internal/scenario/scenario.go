// Package scenario 用 YAML 描述调用图，并在其上运行内联启发式
//
// 一个场景包含函数表、调用点和配置覆盖。Run 把场景构建成节点图，用参考内联器
// 驱动启发式直到不动点，返回可确定性比较的决策序列。
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tangzhangming/inlineheur/internal/inlining"
)

// ErrInvalidScenario 场景内容不合法
var ErrInvalidScenario = errors.New("invalid scenario")

// 分派形状
const (
	DispatchReuse   = "reuse"   // 目标 phi 所在的 merge 可直接复用
	DispatchRebuild = "rebuild" // merge 与调用之间隔着栈检查，只能重建
)

// Scenario 场景
type Scenario struct {
	// Name 场景名，同时用作编译标识
	Name string `yaml:"name"`

	// Description 说明场景验证的行为
	Description string `yaml:"description"`

	// Config 覆盖默认内联配置，未出现的字段保持默认值
	Config inlining.Config `yaml:"config"`

	// MaxIterations 归约驱动的最大轮数，0 表示使用默认值
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// Functions 函数表
	Functions []Function `yaml:"functions"`

	// Calls 顶层函数中的调用点，按出现顺序构建
	Calls []CallSite `yaml:"calls"`
}

// Function 函数描述
type Function struct {
	Name        string     `yaml:"name"`
	Size        int        `yaml:"size"`
	Builtin     bool       `yaml:"builtin,omitempty"`
	UserCode    *bool      `yaml:"user_code,omitempty"` // 默认 true
	Compiled    *bool      `yaml:"compiled,omitempty"`  // 默认 true，false 表示尚未编译
	Foreign     bool       `yaml:"foreign,omitempty"`   // 由其他管线编译
	ForceInline bool       `yaml:"force_inline,omitempty"`
	Body        []BodyCall `yaml:"body,omitempty"`
}

// BodyCall 函数体中的调用点
type BodyCall struct {
	Call      string   `yaml:"call"`
	Frequency *float64 `yaml:"frequency,omitempty"` // 相对于所在函数的频率，缺省为未知
	Construct bool     `yaml:"construct,omitempty"`
}

// CallSite 顶层调用点
type CallSite struct {
	Name            string   `yaml:"name"`
	Targets         []string `yaml:"targets,omitempty"` // 多个目标时构造多态调用点
	Closure         string   `yaml:"closure,omitempty"` // 以闭包创建为调用目标
	Construct       bool     `yaml:"construct,omitempty"`
	Frequency       *float64 `yaml:"frequency,omitempty"`
	Depth           int      `yaml:"depth,omitempty"`            // 外层 JS 函数帧层数，缺省为 1
	SyntheticFrames int      `yaml:"synthetic_frames,omitempty"` // 额外插入的参数适配帧
	Exceptional     bool     `yaml:"exceptional,omitempty"`
	Checkpoint      bool     `yaml:"checkpoint,omitempty"`
	Dispatch        string   `yaml:"dispatch,omitempty"`
	CalleeEscapes   bool     `yaml:"callee_escapes,omitempty"` // 目标 phi 还有其他使用者
}

// Polymorphic 是否为多态调用点
func (c *CallSite) Polymorphic() bool {
	return len(c.Targets) > 1
}

// Load 读取并校验场景文件
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse 解析场景，拒绝未知字段
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{Config: *inlining.DefaultConfig()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate 检查场景的完整性
func Validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if len(s.Calls) == 0 {
		return fmt.Errorf("%w: calls list is required and must be non-empty", ErrInvalidScenario)
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("%w: max_iterations must be non-negative", ErrInvalidScenario)
	}
	if err := s.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	functions := make(map[string]*Function, len(s.Functions))
	for i := range s.Functions {
		fn := &s.Functions[i]
		if fn.Name == "" {
			return fmt.Errorf("%w: function %d has no name", ErrInvalidScenario, i)
		}
		if _, ok := functions[fn.Name]; ok {
			return fmt.Errorf("%w: duplicate function %q", ErrInvalidScenario, fn.Name)
		}
		if fn.Size < 0 {
			return fmt.Errorf("%w: function %q has negative size", ErrInvalidScenario, fn.Name)
		}
		if fn.Foreign && fn.Compiled != nil && !*fn.Compiled {
			return fmt.Errorf("%w: function %q cannot be both foreign and not compiled", ErrInvalidScenario, fn.Name)
		}
		functions[fn.Name] = fn
	}
	for _, fn := range s.Functions {
		for _, call := range fn.Body {
			if _, ok := functions[call.Call]; !ok {
				return fmt.Errorf("%w: function %q calls unknown function %q", ErrInvalidScenario, fn.Name, call.Call)
			}
			if err := validateFrequency(call.Frequency); err != nil {
				return fmt.Errorf("%w: function %q: %w", ErrInvalidScenario, fn.Name, err)
			}
		}
	}

	names := make(map[string]struct{}, len(s.Calls))
	for i := range s.Calls {
		if err := validateCall(&s.Calls[i], functions); err != nil {
			return fmt.Errorf("%w: call %d: %w", ErrInvalidScenario, i, err)
		}
		if _, ok := names[s.Calls[i].Name]; ok {
			return fmt.Errorf("%w: duplicate call %q", ErrInvalidScenario, s.Calls[i].Name)
		}
		names[s.Calls[i].Name] = struct{}{}
	}
	return nil
}

func validateCall(c *CallSite, functions map[string]*Function) error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if (len(c.Targets) == 0) == (c.Closure == "") {
		return fmt.Errorf("%q: exactly one of targets or closure is required", c.Name)
	}
	for _, target := range c.Targets {
		if _, ok := functions[target]; !ok {
			return fmt.Errorf("%q: unknown target %q", c.Name, target)
		}
	}
	if c.Closure != "" {
		if _, ok := functions[c.Closure]; !ok {
			return fmt.Errorf("%q: unknown closure %q", c.Name, c.Closure)
		}
	}
	if err := validateFrequency(c.Frequency); err != nil {
		return fmt.Errorf("%q: %w", c.Name, err)
	}
	if c.Depth < 0 || c.SyntheticFrames < 0 {
		return fmt.Errorf("%q: depth and synthetic_frames must be non-negative", c.Name)
	}

	switch c.Dispatch {
	case "", DispatchReuse, DispatchRebuild:
	default:
		return fmt.Errorf("%q: unknown dispatch %q", c.Name, c.Dispatch)
	}
	if !c.Polymorphic() && (c.Dispatch != "" || c.Checkpoint || c.CalleeEscapes) {
		return fmt.Errorf("%q: dispatch options require several targets", c.Name)
	}
	// new.target 也引用目标 phi，无法复用分派
	if c.Construct && c.Dispatch == DispatchReuse {
		return fmt.Errorf("%q: construct sites cannot reuse dispatch", c.Name)
	}
	return nil
}

func validateFrequency(f *float64) error {
	if f != nil && *f < 0 {
		return fmt.Errorf("negative frequency %v", *f)
	}
	return nil
}
