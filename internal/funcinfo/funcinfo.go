// Package funcinfo 描述内联决策所需的函数元数据
//
// Shared 对应与具体闭包无关的共享函数信息（字节码、标志位、调试名），
// Closure 对应一个具体的函数对象（闭包）。两者都是只读数据，
// 由编译单元在构建图之前创建。
package funcinfo

import "fmt"

// ============================================================================
// 代码形态
// ============================================================================

// CodeKind 函数当前可执行代码的形态
type CodeKind int

const (
	CodeNone     CodeKind = iota // 尚未编译（惰性编译）
	CodeBytecode                 // 已有字节码
	CodeForeign                  // 由其他管线编译（如 asm.js → wasm）
)

func (k CodeKind) String() string {
	switch k {
	case CodeNone:
		return "none"
	case CodeBytecode:
		return "bytecode"
	case CodeForeign:
		return "foreign"
	default:
		return "unknown"
	}
}

// ============================================================================
// 共享函数信息
// ============================================================================

// Shared 共享函数信息
type Shared struct {
	Name           string   // 调试名
	Builtin        bool     // 是否为已识别的内建函数
	UserCode       bool     // 是否为用户编写的代码
	Code           CodeKind // 可执行代码形态
	BytecodeSize   int      // 字节码长度（仅 Code == CodeBytecode 时有效）
	ForceInlineBit bool     // 强制内联标记
}

// NewShared 创建一个已编译为字节码的用户函数
func NewShared(name string, size int) *Shared {
	return &Shared{
		Name:         name,
		UserCode:     true,
		Code:         CodeBytecode,
		BytecodeSize: size,
	}
}

// IsBuiltin 是否为内建函数
func (s *Shared) IsBuiltin() bool { return s.Builtin }

// IsUserJavaScript 是否为用户代码
func (s *Shared) IsUserJavaScript() bool { return s.UserCode }

// HasBytecode 是否已有字节码
func (s *Shared) HasBytecode() bool { return s.Code == CodeBytecode }

// BytecodeLength 返回字节码长度，没有字节码时返回 0
func (s *Shared) BytecodeLength() int {
	if !s.HasBytecode() {
		return 0
	}
	return s.BytecodeSize
}

// ForceInline 是否被标记为强制内联
func (s *Shared) ForceInline() bool { return s.ForceInlineBit }

// DebugName 返回调试名
func (s *Shared) DebugName() string {
	if s.Name == "" {
		return "<anonymous>"
	}
	return s.Name
}

func (s *Shared) String() string {
	return s.DebugName()
}

// ============================================================================
// 闭包
// ============================================================================

// Closure 具体的函数对象
type Closure struct {
	Shared *Shared
	ID     int // 同一 Shared 的不同闭包实例通过 ID 区分
}

// NewClosure 为共享函数信息创建一个闭包
func NewClosure(shared *Shared, id int) *Closure {
	return &Closure{Shared: shared, ID: id}
}

func (c *Closure) String() string {
	return fmt.Sprintf("<JSFunction %s#%d>", c.Shared.DebugName(), c.ID)
}
