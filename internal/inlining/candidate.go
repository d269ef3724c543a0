package inlining

import (
	"github.com/tangzhangming/inlineheur/internal/funcinfo"
	"github.com/tangzhangming/inlineheur/internal/graph"
)

// Candidate 待决策的调用点
type Candidate struct {
	Node              graph.NodeID
	Functions         []*funcinfo.Closure // 目标闭包；nil 元素表示只知道共享函数信息
	Shared            *funcinfo.Shared    // 闭包创建处的共享函数信息
	CanInlineFunction []bool              // 与 Functions 一一对应
	TotalSize         int                 // 可内联目标的字节码总长度
	Frequency         graph.CallFrequency
}

// NumFunctions 目标个数
func (c *Candidate) NumFunctions() int {
	return len(c.Functions)
}

// SharedAt 第 i 个目标的共享函数信息
func (c *Candidate) SharedAt(i int) *funcinfo.Shared {
	if c.Functions[i] == nil {
		return c.Shared
	}
	return c.Functions[i].Shared
}

// targetNames 目标的调试名
func (c *Candidate) targetNames() []string {
	names := make([]string, c.NumFunctions())
	for i := range names {
		names[i] = c.SharedAt(i).DebugName()
	}
	return names
}

// collectFunctions 解析调用目标
//
// 返回的切片为空表示无法解析；闭包创建时返回一个 nil 闭包和对应的共享函数信息。
func collectFunctions(g *graph.Graph, callee graph.NodeID, maxPolymorphism int) ([]*funcinfo.Closure, *funcinfo.Shared) {
	switch g.Opcode(callee) {
	case graph.OpHeapConstant:
		if fn, ok := g.Op(callee).Params.(*funcinfo.Closure); ok {
			return []*funcinfo.Closure{fn}, nil
		}
	case graph.OpPhi:
		valueCount := g.Op(callee).ValueIn
		if valueCount > maxPolymorphism {
			return nil, nil
		}
		functions := make([]*funcinfo.Closure, valueCount)
		for i := range valueCount {
			input := g.ValueInput(callee, i)
			if g.Opcode(input) != graph.OpHeapConstant {
				return nil, nil
			}
			fn, ok := g.Op(input).Params.(*funcinfo.Closure)
			if !ok {
				return nil, nil
			}
			functions[i] = fn
		}
		return functions, nil
	case graph.OpJSCreateClosure:
		p := graph.CreateClosureParametersOf(g.Op(callee))
		return []*funcinfo.Closure{nil}, p.Shared
	}
	return nil, nil
}

// canInlineFunction 目标函数是否可以内联
func canInlineFunction(shared *funcinfo.Shared, config *Config) bool {
	// 内建函数由调用归约处理
	if shared.IsBuiltin() {
		return false
	}
	if !shared.IsUserJavaScript() {
		return false
	}
	// 尚未编译，或编译成了其他形态
	if !shared.HasBytecode() {
		return false
	}
	return shared.BytecodeLength() <= config.MaxInlinedBytecodeSize
}

// isSmallInlineFunction 是否为可立即内联的小函数
func isSmallInlineFunction(shared *funcinfo.Shared, config *Config) bool {
	return shared.HasBytecode() && shared.BytecodeLength() <= config.MaxInlinedBytecodeSizeSmall
}

// candidateLess 报告 left 是否比 right 优先
//
// 已知频率优先于未知频率，频率高者优先；频率相同或都未知时节点编号大者优先。
func candidateLess(left, right *Candidate) bool {
	if right.Frequency.IsUnknown() {
		if left.Frequency.IsUnknown() {
			return left.Node > right.Node
		}
		return true
	}
	if left.Frequency.IsUnknown() {
		return false
	}
	if left.Frequency.Value() > right.Frequency.Value() {
		return true
	}
	if left.Frequency.Value() < right.Frequency.Value() {
		return false
	}
	return left.Node > right.Node
}

// candidateQueue 候选队列，实现 container/heap 接口
type candidateQueue []*Candidate

func (q candidateQueue) Len() int           { return len(q) }
func (q candidateQueue) Less(i, j int) bool { return candidateLess(q[i], q[j]) }
func (q candidateQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *candidateQueue) Push(x any) {
	*q = append(*q, x.(*Candidate))
}

func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}
