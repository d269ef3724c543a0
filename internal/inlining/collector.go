package inlining

import (
	"container/heap"

	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/reducer"
)

// Reduce 检查一个调用点
//
// 每个调用点只检查一次。结果是以下之一：不处理、立即强制内联、压力模式下立即内联、
// 小函数立即内联、放入候选队列。
func (h *Heuristic) Reduce(node graph.NodeID) reducer.Reduction {
	if !graph.IsInlineeOpcode(h.g.Opcode(node)) {
		return reducer.NoChange()
	}
	if _, ok := h.seen[node]; ok {
		return reducer.NoChange()
	}
	h.seen[node] = struct{}{}
	h.stats.CallSites++

	callee := h.g.ValueInput(node, 0)
	functions, shared := collectFunctions(h.g, callee, h.config.MaxCallPolymorphism)
	candidate := &Candidate{
		Node:      node,
		Functions: functions,
		Shared:    shared,
		Frequency: graph.CallFrequencyOf(h.g.Op(node)),
	}
	if candidate.NumFunctions() == 0 {
		h.stats.SkippedNoTarget++
		h.record(candidate, node, DecisionSkipped, ReasonNoTarget)
		return reducer.NoChange()
	}
	if candidate.NumFunctions() > 1 && !h.config.PolymorphicInlining {
		h.stats.SkippedPolymorph++
		h.record(candidate, node, DecisionSkipped, ReasonPolymorphismOff)
		return reducer.NoChange()
	}

	canInline := false
	forceInline := true
	smallInline := true
	candidate.CanInlineFunction = make([]bool, candidate.NumFunctions())
	for i := range candidate.NumFunctions() {
		shared := candidate.SharedAt(i)
		if !shared.ForceInline() {
			forceInline = false
		}
		candidate.CanInlineFunction[i] = canInlineFunction(shared, h.config)
		if candidate.CanInlineFunction[i] {
			canInline = true
			candidate.TotalSize += shared.BytecodeLength()
		}
		if !isSmallInlineFunction(shared, h.config) {
			smallInline = false
		}
	}
	if forceInline {
		h.stats.ForcedInlines++
		return h.inlineCandidate(candidate, true, ReasonForced)
	}
	if !canInline {
		h.stats.SkippedIneligible++
		h.record(candidate, node, DecisionSkipped, ReasonIneligible)
		return reducer.NoChange()
	}

	if h.inliningLevel(node) > h.config.MaxInliningLevels {
		h.stats.SkippedDepth++
		h.record(candidate, node, DecisionSkipped, ReasonTooDeep)
		return reducer.NoChange()
	}

	switch h.config.Mode {
	case ModeRestricted:
		h.stats.SkippedRestricted++
		h.record(candidate, node, DecisionSkipped, ReasonRestricted)
		return reducer.NoChange()
	case ModeStress:
		h.stats.StressInlines++
		return h.inlineCandidate(candidate, false, ReasonStress)
	}

	if candidate.Frequency.IsKnown() && candidate.Frequency.Value() < h.config.MinInliningFrequency {
		h.stats.SkippedFrequency++
		h.record(candidate, node, DecisionSkipped, ReasonLowFrequency)
		return reducer.NoChange()
	}

	// 小函数不参与调度，只受绝对上限约束
	if smallInline && h.cumulativeCount <= h.config.MaxInlinedBytecodeSizeAbsolute {
		h.stats.SmallInlines++
		return h.inlineCandidate(candidate, true, ReasonSmall)
	}

	heap.Push(&h.candidates, candidate)
	h.stats.Enqueued++
	h.record(candidate, node, DecisionEnqueued, ReasonScheduled)
	return reducer.NoChange()
}

// inliningLevel 调用点所在的 JS 函数帧层数
func (h *Heuristic) inliningLevel(node graph.NodeID) int {
	level := 0
	for fs := h.g.FrameStateInput(node); h.g.Opcode(fs) == graph.OpFrameState; fs = h.g.FrameStateInput(fs) {
		if graph.FrameStateInfoOf(h.g.Op(fs)).Type.IsJSFunctionType() {
			level++
		}
	}
	return level
}
