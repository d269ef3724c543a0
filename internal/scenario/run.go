package scenario

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/inlining"
	"github.com/tangzhangming/inlineheur/internal/reducer"
	"github.com/tangzhangming/inlineheur/internal/splice"
)

// ErrNoFixedPoint 归约在最大轮数内没有收敛
var ErrNoFixedPoint = errors.New("reducer did not reach a fixed point")

// Options 运行选项
type Options struct {
	Logger *zap.Logger      // nil 时不输出日志
	Config *inlining.Config // 非 nil 时替换场景中的配置
}

// Result 运行结果
type Result struct {
	Name            string
	Decisions       []inlining.Decision
	CumulativeCount int
	Stats           inlining.Stats
	Splice          splice.Stats
	Reducer         reducer.Stats
	ResidualCalls   []string // 结束时仍存活的调用点，按节点编号排序
	Graph           *graph.Graph
}

// Run 构建场景并运行启发式直到不动点
func Run(s *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	config := s.Config.Clone()
	if opts.Config != nil {
		config = opts.Config.Clone()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	program := Build(s, logger)
	g := program.Graph

	result := &Result{Name: s.Name, Graph: g}
	heuristic := inlining.New(g, program.Inliner, config,
		inlining.WithLogger(logger),
		inlining.WithCompilationID(s.Name),
		inlining.WithObserver(func(d inlining.Decision) {
			result.Decisions = append(result.Decisions, d)
		}))

	reducerConfig := reducer.DefaultConfig()
	if s.MaxIterations > 0 {
		reducerConfig.MaxIterations = s.MaxIterations
	}
	driver := reducer.NewGraphReducer(g, reducerConfig)
	driver.SetLogger(logger.Named("reducer"))
	driver.AddReducer(heuristic)
	fixed := driver.ReduceGraph()

	result.CumulativeCount = heuristic.CumulativeCount()
	result.Stats = heuristic.Stats()
	result.Splice = program.Inliner.Stats()
	result.Reducer = driver.Stats()
	for _, call := range g.LiveNodes(func(n graph.NodeID) bool { return graph.IsInlineeOpcode(g.Opcode(n)) }) {
		result.ResidualCalls = append(result.ResidualCalls, callName(g, call))
	}

	logger.Info("scenario finished",
		zap.String("scenario", s.Name),
		zap.Int("decisions", len(result.Decisions)),
		zap.Int("cumulative", result.CumulativeCount),
		zap.Int("residual", len(result.ResidualCalls)),
		zap.Int("iterations", result.Reducer.Iterations))

	if !fixed {
		return result, fmt.Errorf("scenario %q: %w after %d iterations", s.Name, ErrNoFixedPoint, result.Reducer.Iterations)
	}
	if err := graph.Verify(g); err != nil {
		return result, fmt.Errorf("scenario %q: graph is malformed: %w", s.Name, err)
	}
	return result, nil
}

func callName(g *graph.Graph, call graph.NodeID) string {
	if name := g.Name(call); name != "" {
		return name
	}
	return g.Describe(call)
}
