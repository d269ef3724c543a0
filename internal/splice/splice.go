// splice.go - 参考内联器
//
// 本文件实现一个把声明式函数体拼接到调用点的内联器。函数体只描述其中的调用点
// （目标、相对频率、是否为构造调用），拼接时：
//   - 为被调函数创建一个新的帧状态，外层帧状态为调用点的帧状态
//   - 函数体中的调用依次串在调用点原来的副作用和控制链上，频率乘以调用点频率
//   - 原调用的使用者改为使用最后一个嵌套调用（没有时为 undefined）
//
// 新产生的调用点会在下一轮扫描中被启发式发现。

package splice

import (
	"go.uber.org/zap"

	"github.com/tangzhangming/inlineheur/internal/funcinfo"
	"github.com/tangzhangming/inlineheur/internal/graph"
	"github.com/tangzhangming/inlineheur/internal/reducer"
)

// Call 函数体中的调用点
type Call struct {
	Target    *funcinfo.Closure
	Frequency graph.CallFrequency // 被调函数每执行一次，该调用点执行的次数
	Construct bool
}

// Body 函数体
type Body struct {
	Calls []Call
}

// Stats 拼接统计
type Stats struct {
	Spliced     int // 成功拼接的调用
	Declined    int // 拒绝拼接的调用
	NestedCalls int // 拼接产生的新调用点
}

// Inliner 参考内联器
type Inliner struct {
	g      *graph.Graph
	bodies map[*funcinfo.Shared]Body
	logger *zap.Logger
	stats  Stats
}

// New 创建内联器，logger 为 nil 时不输出日志
func New(g *graph.Graph, logger *zap.Logger) *Inliner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inliner{
		g:      g,
		bodies: make(map[*funcinfo.Shared]Body),
		logger: logger.Named("splice"),
	}
}

// Register 注册函数体，未注册的函数按空函数体拼接
func (in *Inliner) Register(shared *funcinfo.Shared, body Body) {
	in.bodies[shared] = body
}

// Stats 获取统计信息
func (in *Inliner) Stats() Stats {
	return in.stats
}

// ReduceJSCall 在调用点拼接目标函数体
func (in *Inliner) ReduceJSCall(call graph.NodeID) reducer.Reduction {
	g := in.g
	if !graph.IsInlineeOpcode(g.Opcode(call)) || g.IsDead(call) {
		return reducer.NoChange()
	}
	target := g.ValueInput(call, 0)
	shared := resolve(g, target)
	if shared == nil || !shared.HasBytecode() {
		in.stats.Declined++
		in.logger.Debug("declined", zap.String("call", g.Describe(call)))
		return reducer.NoChange()
	}

	undefined := g.HeapConstant(graph.Undefined)
	effect := g.EffectInput(call, 0)
	control := g.ControlInput(call, 0)
	value := undefined

	body := in.bodies[shared]
	if len(body.Calls) > 0 {
		frameState := in.calleeFrameState(call, target, shared)
		callerFrequency := graph.CallFrequencyOf(g.Op(call))
		prefix := g.Name(call)
		if prefix == "" {
			prefix = shared.DebugName()
		}
		for _, nested := range body.Calls {
			callee := g.HeapConstant(nested.Target)
			frequency := nested.Frequency.Mul(callerFrequency)
			var n graph.NodeID
			if nested.Construct {
				op := graph.JSConstruct(graph.ConstructParameters{Arity: 2, Frequency: frequency})
				n = g.NewNode(op, callee, callee, frameState, effect, control)
			} else {
				op := graph.JSCall(graph.CallParameters{Arity: 2, Frequency: frequency})
				n = g.NewNode(op, callee, undefined, frameState, effect, control)
			}
			g.SetName(n, prefix+"/"+nested.Target.Shared.DebugName())
			effect, control, value = n, n, n
			in.stats.NestedCalls++
		}
	}

	// 拼接出的函数体不会抛出，异常投影及其处理路径不可达
	ifException, exceptional := g.IsExceptionalCall(call)
	g.ReplaceWithValue(call, value, effect, control)
	g.Kill(call)
	if exceptional {
		g.ReplaceUses(ifException, g.Dead())
		g.Kill(ifException)
	}
	in.stats.Spliced++
	in.logger.Debug("spliced",
		zap.String("call", g.Describe(call)),
		zap.String("target", shared.DebugName()),
		zap.Int("nested", len(body.Calls)))
	return reducer.Replace(value)
}

// calleeFrameState 被调函数的帧状态
func (in *Inliner) calleeFrameState(call, target graph.NodeID, shared *funcinfo.Shared) graph.NodeID {
	g := in.g
	undefined := g.HeapConstant(graph.Undefined)
	params := g.NewNode(graph.StateValues(0))
	locals := g.NewNode(graph.StateValues(0))
	info := graph.FrameStateInfo{Type: graph.FrameStateInterpretedFunction, Shared: shared}
	return g.NewNode(graph.FrameStateOp(info), params, locals, undefined, target, g.FrameStateInput(call))
}

// resolve 解析调用目标的共享函数信息
func resolve(g *graph.Graph, target graph.NodeID) *funcinfo.Shared {
	switch g.Opcode(target) {
	case graph.OpHeapConstant:
		if fn, ok := g.Op(target).Params.(*funcinfo.Closure); ok {
			return fn.Shared
		}
	case graph.OpJSCreateClosure:
		return graph.CreateClosureParametersOf(g.Op(target)).Shared
	}
	return nil
}
