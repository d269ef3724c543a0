package inlining

import (
	"github.com/tangzhangming/inlineheur/internal/funcinfo"
	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/reducer"
)

// fakeInliner 把调用替换为 undefined，记录被内联的目标
type fakeInliner struct {
	g       *graph.Graph
	reject  map[*funcinfo.Shared]bool
	inlined []string
}

func newFakeInliner(g *graph.Graph) *fakeInliner {
	return &fakeInliner{g: g, reject: make(map[*funcinfo.Shared]bool)}
}

func (f *fakeInliner) ReduceJSCall(call graph.NodeID) reducer.Reduction {
	shared := calleeShared(f.g, call)
	if shared == nil || f.reject[shared] {
		return reducer.NoChange()
	}
	f.inlined = append(f.inlined, shared.DebugName())
	value := f.g.HeapConstant(graph.Undefined)
	f.g.ReplaceWithValue(call, value, f.g.EffectInput(call, 0), f.g.ControlInput(call, 0))
	f.g.Kill(call)
	return reducer.Replace(value)
}

func calleeShared(g *graph.Graph, call graph.NodeID) *funcinfo.Shared {
	callee := g.ValueInput(call, 0)
	switch g.Opcode(callee) {
	case graph.OpHeapConstant:
		if fn, ok := g.Op(callee).Params.(*funcinfo.Closure); ok {
			return fn.Shared
		}
	case graph.OpJSCreateClosure:
		return graph.CreateClosureParametersOf(g.Op(callee)).Shared
	}
	return nil
}

// builder 构建测试用的图
type builder struct {
	g     *graph.Graph
	undef graph.NodeID
	ids   int
}

func newBuilder() *builder {
	g := graph.New()
	return &builder{g: g, undef: g.HeapConstant(graph.Undefined)}
}

func (b *builder) function(name string, size int) *funcinfo.Closure {
	b.ids++
	return funcinfo.NewClosure(funcinfo.NewShared(name, size), b.ids)
}

func (b *builder) constant(fn *funcinfo.Closure) graph.NodeID {
	return b.g.HeapConstant(fn)
}

func (b *builder) frameState(outer graph.NodeID, typ graph.FrameStateType, locals ...graph.NodeID) graph.NodeID {
	params := b.g.NewNode(graph.StateValues(0))
	sv := b.g.NewNode(graph.StateValues(len(locals)), locals...)
	return b.g.NewNode(graph.FrameStateOp(graph.FrameStateInfo{Type: typ}), params, sv, b.undef, b.undef, outer)
}

func (b *builder) call(target graph.NodeID, freq graph.CallFrequency, fs, effect, control graph.NodeID) graph.NodeID {
	return b.g.NewNode(graph.JSCall(graph.CallParameters{Arity: 2, Frequency: freq}), target, b.undef, fs, effect, control)
}

// site 在 Start 上创建一个调用点，结果被 Return 使用
func (b *builder) site(target graph.NodeID, freq graph.CallFrequency) graph.NodeID {
	fs := b.frameState(b.g.Start(), graph.FrameStateInterpretedFunction)
	c := b.call(target, freq, fs, b.g.Start(), b.g.Start())
	b.g.NewNode(graph.Return(), c, c, c)
	return c
}

// polyOptions 多态调用点的形状
type polyOptions struct {
	checkpoint  bool // 在 effect phi 和调用之间插入检查点
	stackCheck  bool // 在 merge 和调用之间插入栈检查，使复用失败
	exceptional bool // 调用带异常投影
	escape      bool // 目标 phi 还有其他使用者
	phiLocals   int  // 调用帧状态中引用目标 phi 的局部变量个数，默认 1
	freq        graph.CallFrequency
}

// polySite 多态调用点中的节点
type polySite struct {
	preds      []graph.NodeID
	merge      graph.NodeID
	phi        graph.NodeID
	effectPhi  graph.NodeID
	checkpoint graph.NodeID
	frameState graph.NodeID
	call       graph.NodeID
	ret        graph.NodeID
	handler    graph.NodeID
}

func (b *builder) polymorphicSite(targets []*funcinfo.Closure, opts polyOptions) polySite {
	g := b.g
	n := len(targets)
	start := g.Start()
	site := polySite{checkpoint: graph.NoNode, handler: graph.NoNode}

	cond := g.NewNode(graph.Parameter(0), start)
	control := start
	for i := 0; i < n-1; i++ {
		branch := g.NewNode(graph.Branch(), cond, control)
		site.preds = append(site.preds, g.NewNode(graph.IfTrue(), branch))
		control = g.NewNode(graph.IfFalse(), branch)
	}
	site.preds = append(site.preds, control)
	site.merge = g.NewNode(graph.Merge(n), site.preds...)

	values := make([]graph.NodeID, 0, n+1)
	effects := make([]graph.NodeID, 0, n+1)
	for _, fn := range targets {
		values = append(values, b.constant(fn))
		effects = append(effects, start)
	}
	site.phi = g.NewNode(graph.Phi(n), append(values, site.merge)...)
	site.effectPhi = g.NewNode(graph.EffectPhi(n), append(effects, site.merge)...)

	effect := site.effectPhi
	control = site.merge
	if opts.checkpoint {
		cpState := b.frameState(start, graph.FrameStateInterpretedFunction, site.phi)
		site.checkpoint = g.NewNode(graph.Checkpoint(), cpState, effect, control)
		effect = site.checkpoint
	}
	if opts.stackCheck {
		scState := b.frameState(start, graph.FrameStateInterpretedFunction)
		sc := g.NewNode(graph.JSStackCheck(), scState, effect, control)
		effect, control = sc, sc
	}
	if opts.escape {
		g.NewNode(graph.ReferenceEqual(), site.phi, b.undef)
	}

	locals := make([]graph.NodeID, max(opts.phiLocals, 1))
	for i := range locals {
		locals[i] = site.phi
	}
	site.frameState = b.frameState(start, graph.FrameStateInterpretedFunction, locals...)
	// 零值频率即未知频率
	site.call = b.call(site.phi, opts.freq, site.frameState, effect, control)
	g.SetName(site.call, "site")

	if opts.exceptional {
		ifSuccess := g.NewNode(graph.IfSuccess(), site.call)
		ifException := g.NewNode(graph.IfException(), site.call, site.call)
		site.ret = g.NewNode(graph.Return(), site.call, site.call, ifSuccess)
		site.handler = g.NewNode(graph.Return(), ifException, ifException, ifException)
	} else {
		site.ret = g.NewNode(graph.Return(), site.call, site.call, site.call)
	}
	return site
}

// liveCalls 所有存活的 JSCall 节点
func liveCalls(g *graph.Graph) []graph.NodeID {
	return g.LiveNodes(func(n graph.NodeID) bool { return g.Opcode(n) == graph.OpJSCall })
}

// recorder 收集决策
type recorder struct {
	decisions []Decision
}

func (r *recorder) observe(d Decision) {
	r.decisions = append(r.decisions, d)
}

func (r *recorder) kinds() []DecisionKind {
	kinds := make([]DecisionKind, len(r.decisions))
	for i, d := range r.decisions {
		kinds[i] = d.Kind
	}
	return kinds
}

func (r *recorder) last() Decision {
	return r.decisions[len(r.decisions)-1]
}
