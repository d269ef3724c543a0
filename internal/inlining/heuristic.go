// heuristic.go - 内联启发式
//
// 本文件定义内联启发式的主体。启发式作为图归约器运行：
//   - Reduce 逐个检查调用点，决定立即内联、丢弃或放入候选队列
//   - Finalize 在每轮扫描结束后从候选队列中取出优先级最高的候选并尝试内联，
//     每次最多成功一次，使新内联函数体中暴露出的调用点能在下一轮被发现
//
// 真正把函数体拼接进图的工作由 Inliner 完成。

package inlining

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/reducer"
)

// Inliner 把目标函数体拼接到调用点的内联器
type Inliner interface {
	// ReduceJSCall 在调用节点处内联目标函数，没有修改图时返回 reducer.NoChange()
	ReduceJSCall(call graph.NodeID) reducer.Reduction
}

// Option 启发式选项
type Option func(*Heuristic)

// WithLogger 设置诊断日志
func WithLogger(logger *zap.Logger) Option {
	return func(h *Heuristic) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver 设置决策观察者，每个决策都会回调一次
func WithObserver(observer func(Decision)) Option {
	return func(h *Heuristic) {
		h.observer = observer
	}
}

// WithCompilationID 设置编译标识，默认随机生成
func WithCompilationID(id string) Option {
	return func(h *Heuristic) {
		h.compilationID = id
	}
}

// Heuristic 内联启发式
type Heuristic struct {
	g       *graph.Graph
	inliner Inliner
	config  *Config

	logger        *zap.Logger
	observer      func(Decision)
	compilationID string

	seen            map[graph.NodeID]struct{}
	candidates      candidateQueue
	cumulativeCount int
	stats           Stats
}

// New 创建内联启发式，config 为 nil 时使用默认配置
func New(g *graph.Graph, inliner Inliner, config *Config, opts ...Option) *Heuristic {
	if config == nil {
		config = DefaultConfig()
	}
	h := &Heuristic{
		g:       g,
		inliner: inliner,
		config:  config,
		logger:  zap.NewNop(),
		seen:    make(map[graph.NodeID]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.compilationID == "" {
		h.compilationID = uuid.NewString()
	}
	h.logger = h.logger.Named("inlining").With(zap.String("compilation", h.compilationID))
	return h
}

// Name 实现 reducer.Reducer
func (h *Heuristic) Name() string {
	return "JSInliningHeuristic"
}

// Config 返回配置
func (h *Heuristic) Config() *Config {
	return h.config
}

// CompilationID 返回编译标识
func (h *Heuristic) CompilationID() string {
	return h.compilationID
}

// CumulativeCount 已内联的字节码累计长度
func (h *Heuristic) CumulativeCount() int {
	return h.cumulativeCount
}

// Pending 候选队列中等待调度的候选数
func (h *Heuristic) Pending() int {
	return h.candidates.Len()
}

// Stats 获取统计信息
func (h *Heuristic) Stats() Stats {
	return h.stats
}

// ResetSeen 清空已检查集合，之后调用点会被重新检查
//
// 仍在候选队列中的调用点保持已检查状态，保证同一调用点最多入队一次。
func (h *Heuristic) ResetSeen() {
	clear(h.seen)
	for _, c := range h.candidates {
		h.seen[c.Node] = struct{}{}
	}
}

// record 记录一个决策
func (h *Heuristic) record(c *Candidate, call graph.NodeID, kind DecisionKind, reason string) {
	d := Decision{
		Node:       call,
		Name:       h.g.Name(call),
		Op:         h.g.Op(call).Mnemonic(),
		Kind:       kind,
		Reason:     reason,
		Frequency:  graph.UnknownFrequency(),
		Cumulative: h.cumulativeCount,
	}
	if c != nil {
		d.Targets = c.targetNames()
		d.Size = c.TotalSize
		d.Frequency = c.Frequency
	}

	if ce := h.logger.Check(zap.DebugLevel, "inlining decision"); ce != nil {
		ce.Write(
			zap.Int32("node", int32(call)),
			zap.String("op", d.Op),
			zap.Stringer("kind", kind),
			zap.String("reason", reason),
			zap.Strings("targets", d.Targets),
			zap.Stringer("frequency", d.Frequency),
			zap.Int("size", d.Size),
			zap.Int("cumulative", d.Cumulative),
		)
	}
	if h.observer != nil {
		h.observer(d)
	}
}
