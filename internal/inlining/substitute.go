package inlining

import (
	"slices"

	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/reducer"
)

// inlineCandidate 内联候选
//
// 单目标时直接交给内联器。多目标时先构建分派，把原调用的使用者接到分派的汇合点，
// 再逐个尝试内联各专门化调用；没有内联的专门化调用作为普通调用保留。
func (h *Heuristic) inlineCandidate(c *Candidate, forceInline bool, reason string) reducer.Reduction {
	g := h.g
	numCalls := c.NumFunctions()
	node := c.Node

	if numCalls == 1 {
		reduction := h.inliner.ReduceJSCall(node)
		if reduction.Changed() {
			h.cumulativeCount += c.SharedAt(0).BytecodeLength()
			h.stats.Inlined++
			h.record(c, node, DecisionInlined, reason)
		} else {
			h.stats.NotInlined++
			h.record(c, node, DecisionNotInlined, ReasonInlinerDeclined)
		}
		return reduction
	}

	callee := g.ValueInput(node, 0)
	inputs := g.Inputs(node)
	calls := make([]graph.NodeID, numCalls)
	ifSuccesses := make([]graph.NodeID, numCalls)
	h.createOrReuseDispatch(node, callee, c, ifSuccesses, calls, inputs)

	// 异常路径：每个专门化调用的异常投影汇合后替换原来的 IfException
	if ifException, ok := g.IsExceptionalCall(node); ok {
		ifExceptions := make([]graph.NodeID, numCalls+1)
		for i := range numCalls {
			ifSuccesses[i] = g.NewNode(graph.IfSuccess(), calls[i])
			ifExceptions[i] = g.NewNode(graph.IfException(), calls[i], calls[i])
		}
		exceptionControl := g.NewNode(graph.Merge(numCalls), ifExceptions[:numCalls]...)
		ifExceptions[numCalls] = exceptionControl
		exceptionEffect := g.NewNode(graph.EffectPhi(numCalls), ifExceptions...)
		exceptionValue := g.NewNode(graph.Phi(numCalls), ifExceptions...)
		g.ReplaceWithValue(ifException, exceptionValue, exceptionEffect, exceptionControl)
		g.Kill(ifException)
	}

	// 正常路径的汇合点
	control := g.NewNode(graph.Merge(numCalls), ifSuccesses...)
	callsAndControl := append(slices.Clone(calls), control)
	effect := g.NewNode(graph.EffectPhi(numCalls), callsAndControl...)
	value := g.NewNode(graph.Phi(numCalls), callsAndControl...)
	g.ReplaceWithValue(node, value, effect, control)
	g.Kill(node)

	for i, call := range calls {
		shared := c.SharedAt(i)
		single := &Candidate{
			Node:              call,
			Functions:         c.Functions[i : i+1],
			CanInlineFunction: c.CanInlineFunction[i : i+1],
			Frequency:         c.Frequency,
		}
		if c.CanInlineFunction[i] {
			single.TotalSize = shared.BytecodeLength()
		}

		if !forceInline && !c.CanInlineFunction[i] {
			h.stats.Residual++
			h.record(single, call, DecisionResidual, ReasonTargetNotInlinable)
			continue
		}
		if !forceInline && h.cumulativeCount >= h.config.MaxInlinedBytecodeSizeCumulative {
			h.stats.Residual++
			h.record(single, call, DecisionResidual, ReasonBudgetExhausted)
			continue
		}

		if h.inliner.ReduceJSCall(call).Changed() {
			g.Kill(call)
			h.cumulativeCount += shared.BytecodeLength()
			h.stats.Inlined++
			h.record(single, call, DecisionInlined, reason)
		} else {
			h.stats.NotInlined++
			h.stats.Residual++
			h.record(single, call, DecisionNotInlined, ReasonInlinerDeclined)
		}
	}
	return reducer.Replace(value)
}
