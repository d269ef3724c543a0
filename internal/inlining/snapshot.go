package inlining

import (
	"fmt"

	"github.com/tangzhangming/inlineheur/internal/graph"
)

// cloneMode 帧状态改名方式
type cloneMode int

const (
	cloneState    cloneMode = iota // 复制被修改的节点
	changeInPlace                  // 直接修改独占的节点
)

// nodeAndIndex 某个节点的某个输入位置
type nodeAndIndex struct {
	node  graph.NodeID
	index int
}

// collectStateValuesOwnedUses 收集 stateValues 树中独占部分对 node 的引用
//
// 被共享的子树不会被改名，因此不收集。超过 maxUses 时返回 false。
func collectStateValuesOwnedUses(g *graph.Graph, node, stateValues graph.NodeID, uses *[]nodeAndIndex, maxUses int) bool {
	if g.UseCount(stateValues) > 1 {
		return true
	}
	for i := 0; i < g.InputCount(stateValues); i++ {
		input := g.InputAt(stateValues, i)
		if g.Opcode(input) == graph.OpStateValues {
			if !collectStateValuesOwnedUses(g, node, input, uses, maxUses) {
				return false
			}
		} else if input == node {
			if len(*uses) >= maxUses {
				return false
			}
			*uses = append(*uses, nodeAndIndex{node: stateValues, index: i})
		}
	}
	return true
}

// collectFrameStateUniqueUses 收集独占帧状态对 node 的引用（栈顶和局部变量）
func collectFrameStateUniqueUses(g *graph.Graph, node, frameState graph.NodeID, uses *[]nodeAndIndex, maxUses int) bool {
	expectOpcode(g, frameState, graph.OpFrameState)
	if g.UseCount(frameState) > 1 {
		return true
	}
	if g.InputAt(frameState, graph.FrameStateStackInput) == node {
		if len(*uses) >= maxUses {
			return false
		}
		*uses = append(*uses, nodeAndIndex{node: frameState, index: graph.FrameStateStackInput})
	}
	locals := g.InputAt(frameState, graph.FrameStateLocalsInput)
	expectOpcode(g, locals, graph.OpStateValues)
	return collectStateValuesOwnedUses(g, node, locals, uses, maxUses)
}

// duplicateStateValuesAndRename 把独占的 stateValues 树中的 from 改名为 to
//
// 子节点先于父节点处理；只有子树确实发生变化时才复制父节点。被共享的节点原样返回。
func duplicateStateValuesAndRename(g *graph.Graph, stateValues, from, to graph.NodeID, mode cloneMode) graph.NodeID {
	if g.UseCount(stateValues) > 1 {
		return stateValues
	}

	inputs := g.Inputs(stateValues)
	processed := make([]graph.NodeID, len(inputs))
	changed := false
	for i, input := range inputs {
		switch {
		case g.Opcode(input) == graph.OpStateValues:
			processed[i] = duplicateStateValuesAndRename(g, input, from, to, mode)
		case input == from:
			processed[i] = to
		default:
			processed[i] = input
		}
		if processed[i] != input {
			changed = true
		}
	}
	if !changed {
		return stateValues
	}

	dup := stateValues
	if mode == cloneState {
		dup = g.CloneNode(stateValues)
	}
	for i, input := range inputs {
		if processed[i] != input {
			g.ReplaceInput(dup, i, processed[i])
		}
	}
	return dup
}

// duplicateFrameStateAndRename 把独占帧状态中的 from 改名为 to
func duplicateFrameStateAndRename(g *graph.Graph, frameState, from, to graph.NodeID, mode cloneMode) graph.NodeID {
	expectOpcode(g, frameState, graph.OpFrameState)
	if g.UseCount(frameState) > 1 {
		return frameState
	}

	stack := g.InputAt(frameState, graph.FrameStateStackInput)
	newStack := stack
	if stack == from {
		newStack = to
	}
	locals := g.InputAt(frameState, graph.FrameStateLocalsInput)
	expectOpcode(g, locals, graph.OpStateValues)
	newLocals := duplicateStateValuesAndRename(g, locals, from, to, mode)

	if newStack == stack && newLocals == locals {
		return frameState
	}
	dup := frameState
	if mode == cloneState {
		dup = g.CloneNode(frameState)
	}
	if newStack != stack {
		g.ReplaceInput(dup, graph.FrameStateStackInput, newStack)
	}
	if newLocals != locals {
		g.ReplaceInput(dup, graph.FrameStateLocalsInput, newLocals)
	}
	return dup
}

// expectOpcode 图结构不符合预期时 panic
func expectOpcode(g *graph.Graph, n graph.NodeID, op graph.Opcode) {
	if g.Opcode(n) != op {
		panic(fmt.Sprintf("inlining: expected %s, got %s", op, g.Describe(n)))
	}
}
