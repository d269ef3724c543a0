package inlining

import (
	"fmt"
	"slices"

	"github.com/tangzhangming/inlineheur/internal/graph"
)

// maxReplaceableUses 复用分派时最多收集的目标 phi 使用数
const maxReplaceableUses = 8

// tryReuseDispatch 尝试复用目标 phi 所在的已有控制流分派
//
// 要求的图形状：
//
//	     Merge ──────────┬──────────┐
//	       │             │          │
//	  Phi(targets)   EffectPhi      │
//	       │             │          │
//	       │        [Checkpoint] ───┤
//	       │             │          │
//	       └──────── Call ──────────┘
//
// 目标 phi 除了作为调用目标，只能出现在检查点和调用的帧状态中（仅限独占部分）。
// 成功时为 merge 的每个前驱生成一个专门化调用，并把原来的 merge 杀死。
func (h *Heuristic) tryReuseDispatch(node, callee graph.NodeID, c *Candidate, ifSuccesses, calls, inputs []graph.NodeID) bool {
	g := h.g
	numCalls := c.NumFunctions()
	expectOpcode(g, callee, graph.OpPhi)
	if g.Op(callee).ValueIn != numCalls {
		panic(fmt.Sprintf("inlining: %s has %d values, candidate has %d targets", g.Describe(callee), g.Op(callee).ValueIn, numCalls))
	}

	merge := g.ControlInput(callee, 0)
	if g.ControlInput(node, 0) != merge {
		return false
	}
	expectOpcode(g, merge, graph.OpMerge)
	if g.Op(merge).ControlIn != numCalls {
		panic(fmt.Sprintf("inlining: %s does not match %s", g.Describe(merge), g.Describe(callee)))
	}

	checkpoint := graph.NoNode
	effect := g.EffectInput(node, 0)
	if g.Opcode(effect) == graph.OpCheckpoint {
		checkpoint = effect
		if g.ControlInput(checkpoint, 0) != merge {
			return false
		}
		effect = g.EffectInput(checkpoint, 0)
	}
	if g.Opcode(effect) != graph.OpEffectPhi {
		return false
	}
	if g.ControlInput(effect, 0) != merge {
		return false
	}
	effectPhi := effect

	if !h.dispatchIsPrivate(node, callee, merge, effectPhi, checkpoint) {
		return false
	}

	var replaceableUses []nodeAndIndex
	checkpointState := graph.NoNode
	if checkpoint != graph.NoNode {
		checkpointState = g.FrameStateInput(checkpoint)
		if !collectFrameStateUniqueUses(g, callee, checkpointState, &replaceableUses, maxReplaceableUses) {
			return false
		}
	}
	frameState := g.FrameStateInput(node)
	if !collectFrameStateUniqueUses(g, callee, frameState, &replaceableUses, maxReplaceableUses) {
		return false
	}

	// 目标 phi 的其他使用都必须能被改名
	for _, e := range g.Uses(callee) {
		if e.From == node && e.Index == 0 {
			continue
		}
		if !slices.Contains(replaceableUses, nodeAndIndex{node: e.From, index: e.Index}) {
			return false
		}
	}

	for i := range numCalls {
		target := g.ValueInput(callee, i)
		effect := g.EffectInput(effectPhi, i)
		control := g.ControlInput(merge, i)

		// 最后一个分支可以直接修改原来的帧状态
		mode := cloneState
		if i == numCalls-1 {
			mode = changeInPlace
		}
		if checkpoint != graph.NoNode {
			newCheckpointState := duplicateFrameStateAndRename(g, checkpointState, callee, target, mode)
			effect = g.NewNode(g.Op(checkpoint), newCheckpointState, effect, control)
		}
		newLazyFrameState := duplicateFrameStateAndRename(g, frameState, callee, target, mode)

		inputs[0] = target
		inputs[len(inputs)-3] = newLazyFrameState
		inputs[len(inputs)-2] = effect
		inputs[len(inputs)-1] = control
		calls[i] = g.NewNode(g.Op(node), inputs...)
		ifSuccesses[i] = calls[i]
	}

	dead := g.Dead()
	g.ReplaceInput(node, g.FirstControlIndex(node), dead)
	g.ReplaceInput(callee, g.FirstControlIndex(callee), dead)
	g.ReplaceInput(effectPhi, g.FirstControlIndex(effectPhi), dead)
	if checkpoint != graph.NoNode {
		g.ReplaceInput(checkpoint, g.FirstControlIndex(checkpoint), dead)
	}
	g.Kill(merge)
	return true
}

// dispatchIsPrivate merge、effect phi 和检查点是否只被分派结构本身使用
func (h *Heuristic) dispatchIsPrivate(node, callee, merge, effectPhi, checkpoint graph.NodeID) bool {
	g := h.g
	for _, e := range g.Uses(merge) {
		if e.From != callee && e.From != effectPhi && e.From != node && e.From != checkpoint {
			return false
		}
	}
	effectUser := node
	if checkpoint != graph.NoNode {
		effectUser = checkpoint
		for _, e := range g.Uses(checkpoint) {
			if e.From != node || !g.IsEffectEdge(e) {
				return false
			}
		}
	}
	for _, e := range g.Uses(effectPhi) {
		if e.From != effectUser || !g.IsEffectEdge(e) {
			return false
		}
	}
	return true
}

// createOrReuseDispatch 为多态调用构建分派，结果写入 calls 和 ifSuccesses
func (h *Heuristic) createOrReuseDispatch(node, callee graph.NodeID, c *Candidate, ifSuccesses, calls, inputs []graph.NodeID) {
	g := h.g
	if h.tryReuseDispatch(node, callee, c, ifSuccesses, calls, inputs) {
		h.stats.DispatchReused++
		h.nameSpecializedCalls(node, c, calls)
		return
	}
	h.stats.DispatchRebuilt++

	fallthroughControl := g.ControlInput(node, 0)
	numCalls := c.NumFunctions()
	// 构造调用的 new.target 与被调函数相同时一起专门化
	sameNewTarget := g.Opcode(node) == graph.OpJSConstruct && inputs[1] == callee
	for i := range numCalls {
		if c.Functions[i] == nil {
			panic(fmt.Sprintf("inlining: polymorphic %s has an unresolved target", g.Describe(node)))
		}
		target := g.HeapConstant(c.Functions[i])
		if i != numCalls-1 {
			check := g.NewNode(graph.ReferenceEqual(), callee, target)
			branch := g.NewNode(graph.Branch(), check, fallthroughControl)
			fallthroughControl = g.NewNode(graph.IfFalse(), branch)
			ifSuccesses[i] = g.NewNode(graph.IfTrue(), branch)
		} else {
			ifSuccesses[i] = fallthroughControl
		}

		inputs[0] = target
		if sameNewTarget {
			inputs[1] = target
		}
		inputs[len(inputs)-1] = ifSuccesses[i]
		calls[i] = g.NewNode(g.Op(node), inputs...)
		ifSuccesses[i] = calls[i]
	}
	h.nameSpecializedCalls(node, c, calls)
}

// nameSpecializedCalls 给专门化调用起名，便于追踪
func (h *Heuristic) nameSpecializedCalls(node graph.NodeID, c *Candidate, calls []graph.NodeID) {
	name := h.g.Name(node)
	if name == "" {
		return
	}
	for i, call := range calls {
		h.g.SetName(call, name+"@"+c.SharedAt(i).DebugName())
	}
}
