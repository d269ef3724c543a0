package scenario

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/inlineheur/internal/funcinfo"
	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/splice"
)

// Program 由场景构建出的图
type Program struct {
	Graph     *graph.Graph
	Inliner   *splice.Inliner
	Functions map[string]*funcinfo.Closure
	Calls     []graph.NodeID // 与 Scenario.Calls 一一对应
}

// Build 构建场景对应的节点图，并把函数体注册到参考内联器
//
// 每个调用点独立挂在 Start 上，结果由一个 Return 使用。
func Build(s *Scenario, logger *zap.Logger) *Program {
	g := graph.New()
	p := &Program{
		Graph:     g,
		Inliner:   splice.New(g, logger),
		Functions: make(map[string]*funcinfo.Closure, len(s.Functions)),
	}

	for i, fn := range s.Functions {
		p.Functions[fn.Name] = funcinfo.NewClosure(newShared(fn), i+1)
	}
	for _, fn := range s.Functions {
		if len(fn.Body) == 0 {
			continue
		}
		body := splice.Body{Calls: make([]splice.Call, len(fn.Body))}
		for i, call := range fn.Body {
			body.Calls[i] = splice.Call{
				Target:    p.Functions[call.Call],
				Frequency: frequency(call.Frequency),
				Construct: call.Construct,
			}
		}
		p.Inliner.Register(p.Functions[fn.Name].Shared, body)
	}

	b := &builder{g: g, undef: g.HeapConstant(graph.Undefined), functions: p.Functions}
	for i := range s.Calls {
		p.Calls = append(p.Calls, b.callSite(&s.Calls[i]))
	}
	return p
}

func newShared(fn Function) *funcinfo.Shared {
	shared := &funcinfo.Shared{
		Name:           fn.Name,
		Builtin:        fn.Builtin,
		UserCode:       fn.UserCode == nil || *fn.UserCode,
		Code:           funcinfo.CodeBytecode,
		BytecodeSize:   fn.Size,
		ForceInlineBit: fn.ForceInline,
	}
	switch {
	case fn.Foreign:
		shared.Code = funcinfo.CodeForeign
	case fn.Compiled != nil && !*fn.Compiled:
		shared.Code = funcinfo.CodeNone
	}
	return shared
}

func frequency(f *float64) graph.CallFrequency {
	if f == nil {
		return graph.UnknownFrequency()
	}
	return graph.NewCallFrequency(*f)
}

type builder struct {
	g         *graph.Graph
	undef     graph.NodeID
	functions map[string]*funcinfo.Closure
}

// frameState 创建帧状态，locals 为局部变量
func (b *builder) frameState(outer graph.NodeID, typ graph.FrameStateType, locals ...graph.NodeID) graph.NodeID {
	params := b.g.NewNode(graph.StateValues(0))
	sv := b.g.NewNode(graph.StateValues(len(locals)), locals...)
	return b.g.NewNode(graph.FrameStateOp(graph.FrameStateInfo{Type: typ}), params, sv, b.undef, b.undef, outer)
}

// outerFrameState 调用所在函数之外的帧状态链
func (b *builder) outerFrameState(c *CallSite) graph.NodeID {
	outer := b.g.Start()
	for range max(c.Depth, 1) - 1 {
		outer = b.frameState(outer, graph.FrameStateInterpretedFunction)
	}
	for range c.SyntheticFrames {
		outer = b.frameState(outer, graph.FrameStateArgumentsAdaptor)
	}
	return outer
}

func (b *builder) callSite(c *CallSite) graph.NodeID {
	g := b.g
	start := g.Start()
	outer := b.outerFrameState(c)

	var target, frameState graph.NodeID
	effect, control := start, start
	switch {
	case c.Closure != "":
		shared := b.functions[c.Closure].Shared
		target = g.NewNode(graph.JSCreateClosure(graph.CreateClosureParameters{Shared: shared}), start, start)
		frameState = b.frameState(outer, graph.FrameStateInterpretedFunction)
	case c.Polymorphic():
		target, effect, control, frameState = b.dispatch(c, outer)
	default:
		target = g.HeapConstant(b.functions[c.Targets[0]])
		frameState = b.frameState(outer, graph.FrameStateInterpretedFunction)
	}

	freq := frequency(c.Frequency)
	var call graph.NodeID
	if c.Construct {
		op := graph.JSConstruct(graph.ConstructParameters{Arity: 2, Frequency: freq})
		call = g.NewNode(op, target, target, frameState, effect, control)
	} else {
		op := graph.JSCall(graph.CallParameters{Arity: 2, Frequency: freq})
		call = g.NewNode(op, target, b.undef, frameState, effect, control)
	}
	g.SetName(call, c.Name)

	if c.Exceptional {
		ifSuccess := g.NewNode(graph.IfSuccess(), call)
		ifException := g.NewNode(graph.IfException(), call, call)
		g.NewNode(graph.Return(), call, call, ifSuccess)
		g.NewNode(graph.Return(), ifException, ifException, ifException)
	} else {
		g.NewNode(graph.Return(), call, call, call)
	}
	return call
}

// dispatch 构建多态调用点前的控制流：每个目标一个前驱，汇合后由 phi 选择目标
//
// 返回目标 phi、调用的副作用和控制输入以及调用的帧状态。
func (b *builder) dispatch(c *CallSite, outer graph.NodeID) (target, effect, control, frameState graph.NodeID) {
	g := b.g
	start := g.Start()
	n := len(c.Targets)

	cond := g.NewNode(graph.Parameter(0), start)
	preds := make([]graph.NodeID, 0, n)
	control = start
	for range n - 1 {
		branch := g.NewNode(graph.Branch(), cond, control)
		preds = append(preds, g.NewNode(graph.IfTrue(), branch))
		control = g.NewNode(graph.IfFalse(), branch)
	}
	preds = append(preds, control)
	merge := g.NewNode(graph.Merge(n), preds...)

	values := make([]graph.NodeID, 0, n+1)
	effects := make([]graph.NodeID, 0, n+1)
	for _, name := range c.Targets {
		values = append(values, g.HeapConstant(b.functions[name]))
		effects = append(effects, start)
	}
	phi := g.NewNode(graph.Phi(n), append(values, merge)...)
	effect = g.NewNode(graph.EffectPhi(n), append(effects, merge)...)
	control = merge

	if c.Checkpoint {
		state := b.frameState(outer, graph.FrameStateInterpretedFunction, phi)
		effect = g.NewNode(graph.Checkpoint(), state, effect, control)
	}
	if c.Dispatch == DispatchRebuild {
		state := b.frameState(outer, graph.FrameStateInterpretedFunction)
		check := g.NewNode(graph.JSStackCheck(), state, effect, control)
		effect, control = check, check
	}
	if c.CalleeEscapes {
		g.NewNode(graph.ReferenceEqual(), phi, b.undef)
	}

	frameState = b.frameState(outer, graph.FrameStateInterpretedFunction, phi)
	return phi, effect, control, frameState
}
