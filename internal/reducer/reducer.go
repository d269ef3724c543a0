// reducer.go - 图归约驱动
//
// 本文件实现对节点图的不动点归约：每一轮把所有存活节点依次交给每个 Reducer，
// 应用它们给出的替换，然后调用各 Reducer 的 Finalize。当某一轮既没有节点被修改、
// Finalize 也没有做任何事时停止。
//
// 使用方式：
//   gr := reducer.NewGraphReducer(g, nil)
//   gr.AddReducer(heuristic)
//   gr.ReduceGraph()

package reducer

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/inlineheur/internal/graph"
)

// ============================================================================
// 归约结果
// ============================================================================

// Reduction 单次归约的结果
type Reduction struct {
	replacement graph.NodeID
}

// NoChange 没有修改
func NoChange() Reduction {
	return Reduction{replacement: graph.NoNode}
}

// Changed 节点被原地修改
func Changed(n graph.NodeID) Reduction {
	return Reduction{replacement: n}
}

// Replace 节点应被 replacement 替换
func Replace(replacement graph.NodeID) Reduction {
	return Reduction{replacement: replacement}
}

// Changed 是否有修改
func (r Reduction) Changed() bool {
	return r.replacement != graph.NoNode
}

// Replacement 替换节点，没有修改时为 graph.NoNode
func (r Reduction) Replacement() graph.NodeID {
	return r.replacement
}

// ============================================================================
// Reducer 接口
// ============================================================================

// Reducer 节点归约器
type Reducer interface {
	Name() string
	Reduce(n graph.NodeID) Reduction // 对单个节点归约
	Finalize() bool                  // 一轮扫描结束后调用，返回是否有修改
}

// ============================================================================
// 归约驱动
// ============================================================================

// Config 归约驱动配置
type Config struct {
	// MaxIterations 最大轮数
	MaxIterations int
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{MaxIterations: 100}
}

// Stats 归约统计
type Stats struct {
	Iterations    int            // 执行的轮数
	Reductions    int            // 产生修改的 Reduce 次数
	Finalizations int            // 产生修改的 Finalize 次数
	PerReducer    map[string]int // 每个 Reducer 产生修改的次数
	ReachedFixed  bool           // 是否到达不动点
}

// GraphReducer 图归约驱动
type GraphReducer struct {
	g        *graph.Graph
	config   *Config
	reducers []Reducer
	logger   *zap.Logger
	stats    Stats
}

// NewGraphReducer 创建归约驱动
func NewGraphReducer(g *graph.Graph, config *Config) *GraphReducer {
	if config == nil {
		config = DefaultConfig()
	}
	return &GraphReducer{
		g:      g,
		config: config,
		logger: zap.NewNop(),
		stats: Stats{
			PerReducer: make(map[string]int),
		},
	}
}

// SetLogger 设置日志
func (gr *GraphReducer) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gr.logger = logger
}

// AddReducer 添加 Reducer
func (gr *GraphReducer) AddReducer(r Reducer) {
	gr.reducers = append(gr.reducers, r)
}

// Stats 获取统计信息
func (gr *GraphReducer) Stats() Stats {
	return gr.stats
}

// ReduceGraph 运行直到不再有改变或达到最大轮数，返回是否到达不动点
func (gr *GraphReducer) ReduceGraph() bool {
	for i := 0; i < gr.config.MaxIterations; i++ {
		gr.stats.Iterations++
		changed := gr.Sweep()
		for _, r := range gr.reducers {
			if r.Finalize() {
				gr.stats.Finalizations++
				gr.stats.PerReducer[r.Name()]++
				changed = true
			}
		}
		gr.logger.Debug("reducer iteration",
			zap.Int("iteration", i),
			zap.Bool("changed", changed),
			zap.Int("nodes", gr.g.NodeCount()))
		if !changed {
			gr.stats.ReachedFixed = true
			return true
		}
	}
	gr.logger.Warn("reducer did not reach a fixed point",
		zap.Int("max_iterations", gr.config.MaxIterations))
	return false
}

// Sweep 把所有存活节点交给每个 Reducer 一次，返回是否有修改
//
// 扫描期间新建的节点也会在本轮被访问。
func (gr *GraphReducer) Sweep() bool {
	changed := false
	for id := 0; id < gr.g.NodeCount(); id++ {
		n := graph.NodeID(id)
		for _, r := range gr.reducers {
			if gr.g.IsDead(n) {
				break
			}
			reduction := r.Reduce(n)
			if !reduction.Changed() {
				continue
			}
			changed = true
			gr.stats.Reductions++
			gr.stats.PerReducer[r.Name()]++
			gr.replace(n, reduction.Replacement())
		}
	}
	return changed
}

// replace 用 replacement 替换 n 的全部使用并杀死 n
func (gr *GraphReducer) replace(n, replacement graph.NodeID) {
	if replacement == n || gr.g.IsDead(n) {
		return
	}
	gr.g.ReplaceUses(n, replacement)
	gr.g.Kill(n)
}
