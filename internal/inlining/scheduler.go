package inlining

import (
	"container/heap"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Finalize 实现 reducer.Reducer
//
// 按优先级取出候选，超出累计预算的候选被丢弃，已死亡的调用点被跳过。
// 第一次成功内联后立即返回，候选队列中剩余的候选留到下一轮。
func (h *Heuristic) Finalize() bool {
	if h.candidates.Len() == 0 {
		return false
	}
	if h.config.Trace {
		h.printCandidates()
	}

	for h.candidates.Len() > 0 {
		candidate := heap.Pop(&h.candidates).(*Candidate)

		// 预留一部分预算给之后可能出现的小函数
		reserved := int(float64(candidate.TotalSize) * h.config.ReserveInlineBudgetScaleFactor)
		if h.cumulativeCount+reserved > h.config.MaxInlinedBytecodeSizeCumulative {
			h.stats.DiscardedBudget++
			h.record(candidate, candidate.Node, DecisionSkipped, ReasonBudget)
			continue
		}

		if h.g.IsDead(candidate.Node) {
			h.stats.DiscardedDead++
			continue
		}

		if h.inlineCandidate(candidate, false, ReasonScheduled).Changed() {
			return true
		}
	}
	return false
}

// printCandidates 按优先级输出候选队列
func (h *Heuristic) printCandidates() {
	sorted := slices.Clone(h.candidates)
	slices.SortFunc(sorted, func(a, b *Candidate) int {
		if candidateLess(a, b) {
			return -1
		}
		if candidateLess(b, a) {
			return 1
		}
		return 0
	})

	h.logger.Info("Candidates for inlining", zap.Int("count", len(sorted)))
	for _, c := range sorted {
		targets := make([]string, c.NumFunctions())
		for i := range targets {
			shared := c.SharedAt(i)
			targets[i] = fmt.Sprintf("size:%d, name: %s", shared.BytecodeLength(), shared.DebugName())
		}
		h.logger.Info("  candidate",
			zap.String("node", h.g.Describe(c.Node)),
			zap.Stringer("frequency", c.Frequency),
			zap.Int("size", c.TotalSize),
			zap.Strings("targets", targets))
	}
}
