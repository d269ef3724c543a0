package graph

import "fmt"

// ============================================================================
// 输入排布
// ============================================================================

// FirstFrameStateIndex 第一个帧状态输入的下标
func (g *Graph) FirstFrameStateIndex(n NodeID) int {
	return g.Op(n).ValueIn
}

// FirstEffectIndex 第一个副作用输入的下标
func (g *Graph) FirstEffectIndex(n NodeID) int {
	op := g.Op(n)
	return op.ValueIn + op.FrameStateIn
}

// FirstControlIndex 第一个控制输入的下标
func (g *Graph) FirstControlIndex(n NodeID) int {
	op := g.Op(n)
	return op.ValueIn + op.FrameStateIn + op.EffectIn
}

// ValueInput 第 i 个值输入
func (g *Graph) ValueInput(n NodeID, i int) NodeID {
	if i < 0 || i >= g.Op(n).ValueIn {
		panic(fmt.Sprintf("graph: %s has no value input %d", g.Describe(n), i))
	}
	return g.InputAt(n, i)
}

// FrameStateInput 帧状态输入
func (g *Graph) FrameStateInput(n NodeID) NodeID {
	if g.Op(n).FrameStateIn != 1 {
		panic(fmt.Sprintf("graph: %s has no frame state input", g.Describe(n)))
	}
	return g.InputAt(n, g.FirstFrameStateIndex(n))
}

// EffectInput 第 i 个副作用输入
func (g *Graph) EffectInput(n NodeID, i int) NodeID {
	if i < 0 || i >= g.Op(n).EffectIn {
		panic(fmt.Sprintf("graph: %s has no effect input %d", g.Describe(n), i))
	}
	return g.InputAt(n, g.FirstEffectIndex(n)+i)
}

// ControlInput 第 i 个控制输入
func (g *Graph) ControlInput(n NodeID, i int) NodeID {
	if i < 0 || i >= g.Op(n).ControlIn {
		panic(fmt.Sprintf("graph: %s has no control input %d", g.Describe(n), i))
	}
	return g.InputAt(n, g.FirstControlIndex(n)+i)
}

// IsValueEdge 是否为值边
func (g *Graph) IsValueEdge(e Edge) bool {
	return e.Index < g.FirstFrameStateIndex(e.From)
}

// IsFrameStateEdge 是否为帧状态边
func (g *Graph) IsFrameStateEdge(e Edge) bool {
	return e.Index >= g.FirstFrameStateIndex(e.From) && e.Index < g.FirstEffectIndex(e.From)
}

// IsEffectEdge 是否为副作用边
func (g *Graph) IsEffectEdge(e Edge) bool {
	return e.Index >= g.FirstEffectIndex(e.From) && e.Index < g.FirstControlIndex(e.From)
}

// IsControlEdge 是否为控制边
func (g *Graph) IsControlEdge(e Edge) bool {
	return e.Index >= g.FirstControlIndex(e.From)
}

// ============================================================================
// 替换
// ============================================================================

// IsExceptionalCall 调用是否带有异常投影，若有则返回 IfException 节点
func (g *Graph) IsExceptionalCall(n NodeID) (NodeID, bool) {
	for _, e := range g.at(n).uses {
		if g.Opcode(e.From) == OpIfException {
			return e.From, true
		}
	}
	return NoNode, false
}

// ReplaceWithValue 用 (value, effect, control) 三元组替换 n 的全部使用
//
// 控制边上的 IfSuccess 投影整体替换为 control 并被杀死。IfException
// 投影的控制边改接到死节点但投影本身仍存活，调用方需先用
// IsExceptionalCall 取出它，再重接或杀死异常路径。
func (g *Graph) ReplaceWithValue(n, value, effect, control NodeID) {
	for _, e := range g.Uses(n) {
		if g.IsKilled(e.From) {
			continue
		}
		user := e.From
		switch {
		case g.IsControlEdge(e):
			switch g.Opcode(user) {
			case OpIfSuccess:
				g.ReplaceUses(user, control)
				g.Kill(user)
			case OpIfException:
				g.UpdateEdge(e, g.Dead())
			default:
				g.UpdateEdge(e, control)
			}
		case g.IsEffectEdge(e):
			g.UpdateEdge(e, effect)
		default:
			g.UpdateEdge(e, value)
		}
	}
}
