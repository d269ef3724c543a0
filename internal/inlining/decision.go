package inlining

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/inlineheur/internal/graph"
)

// DecisionKind 决策类型
type DecisionKind int

const (
	DecisionSkipped    DecisionKind = iota // 不内联，调用点保持原样
	DecisionEnqueued                       // 进入候选队列，等待调度
	DecisionInlined                        // 内联成功
	DecisionNotInlined                     // 尝试内联，但内联器没有修改图
	DecisionResidual                       // 多态分派后保留为普通调用
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionSkipped:
		return "skipped"
	case DecisionEnqueued:
		return "enqueued"
	case DecisionInlined:
		return "inlined"
	case DecisionNotInlined:
		return "not-inlined"
	case DecisionResidual:
		return "residual"
	default:
		return "unknown"
	}
}

// 决策原因
const (
	ReasonNoTarget           = "no known target"
	ReasonPolymorphismOff    = "polymorphic inlining disabled"
	ReasonIneligible         = "no inlinable target"
	ReasonTooDeep            = "inlining depth exceeded"
	ReasonRestricted         = "restricted mode"
	ReasonLowFrequency       = "frequency below threshold"
	ReasonForced             = "force inline"
	ReasonStress             = "stress mode"
	ReasonSmall              = "small function"
	ReasonScheduled          = "scheduled"
	ReasonBudget             = "cumulative budget exceeded"
	ReasonInlinerDeclined    = "inliner made no change"
	ReasonTargetNotInlinable = "target not inlinable"
	ReasonBudgetExhausted    = "cumulative budget exhausted"
)

// Decision 单次内联决策，用于诊断和观察
type Decision struct {
	Node       graph.NodeID        // 调用节点
	Name       string              // 调用节点的调试名
	Op         string              // 调用操作名（JSCall / JSConstruct）
	Kind       DecisionKind        // 决策类型
	Reason     string              // 原因
	Targets    []string            // 目标函数调试名
	Size       int                 // 候选的可内联字节码总长度
	Frequency  graph.CallFrequency // 调用频率
	Cumulative int                 // 决策后的累计计数
}

// Label 返回调用点的显示名：有调试名时用调试名，否则用节点描述
func (d Decision) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("#%d:%s", d.Node, d.Op)
}

func (d Decision) String() string {
	return fmt.Sprintf("%s %s [%s] reason=%q size=%d freq=%s cumulative=%d",
		d.Kind, d.Label(), strings.Join(d.Targets, ","), d.Reason, d.Size, d.Frequency, d.Cumulative)
}

// Stats 内联统计
type Stats struct {
	CallSites         int // 检查过的调用点
	Enqueued          int // 进入候选队列的调用点
	Inlined           int // 成功内联的调用（多态分支分别计数）
	NotInlined        int // 内联器拒绝的调用
	Residual          int // 多态分派后保留的调用
	ForcedInlines     int // 强制内联的调用点
	SmallInlines      int // 立即内联的小函数调用点
	StressInlines     int // 压力模式下立即内联的调用点
	SkippedNoTarget   int // 无法解析目标
	SkippedPolymorph  int // 多态内联被禁用
	SkippedIneligible int // 没有可内联目标
	SkippedDepth      int // 超过内联深度
	SkippedFrequency  int // 频率过低
	SkippedRestricted int // 受限模式
	DiscardedBudget   int // 调度时超出累计预算
	DiscardedDead     int // 调度时调用点已死亡
	DispatchReused    int // 复用已有分派
	DispatchRebuilt   int // 重建分派
}
