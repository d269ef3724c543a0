package graph

import (
	"fmt"

	"github.com/tangzhangming/inlineheur/internal/funcinfo"
)

// ============================================================================
// 操作符
// ============================================================================

// Operator 节点操作符
//
// 操作符描述节点输入的固定排布：先是值输入，然后是帧状态输入，
// 再是副作用输入，最后是控制输入。操作符是不可变的，
// 克隆节点时新旧节点共享同一个操作符。
type Operator struct {
	Opcode       Opcode
	ValueIn      int
	FrameStateIn int
	EffectIn     int
	ControlIn    int
	Params       any
}

// Mnemonic 返回助记符
func (op *Operator) Mnemonic() string {
	return op.Opcode.String()
}

// InputCount 输入总数
func (op *Operator) InputCount() int {
	return op.ValueIn + op.FrameStateIn + op.EffectIn + op.ControlIn
}

func (op *Operator) String() string {
	if op.Params == nil {
		return op.Mnemonic()
	}
	return fmt.Sprintf("%s[%v]", op.Mnemonic(), op.Params)
}

// ============================================================================
// 操作符参数
// ============================================================================

// CallParameters JSCall 的参数
type CallParameters struct {
	Arity     int // 值输入个数：目标 + 接收者 + 实参
	Frequency CallFrequency
}

func (p CallParameters) String() string {
	return fmt.Sprintf("%d, %s", p.Arity, p.Frequency)
}

// ConstructParameters JSConstruct 的参数
type ConstructParameters struct {
	Arity     int // 值输入个数：目标 + 实参 + new.target
	Frequency CallFrequency
}

func (p ConstructParameters) String() string {
	return fmt.Sprintf("%d, %s", p.Arity, p.Frequency)
}

// CreateClosureParameters JSCreateClosure 的参数
type CreateClosureParameters struct {
	Shared *funcinfo.Shared
}

func (p CreateClosureParameters) String() string {
	return p.Shared.DebugName()
}

// FrameStateType 帧状态类型
type FrameStateType int

const (
	FrameStateInterpretedFunction           FrameStateType = iota // 解释器帧
	FrameStateArgumentsAdaptor                                    // 参数适配帧
	FrameStateConstructStub                                       // 构造桩帧
	FrameStateBuiltinContinuation                                 // 内建续体帧
	FrameStateJavaScriptBuiltinContinuation                       // JS 内建续体帧
)

func (t FrameStateType) String() string {
	switch t {
	case FrameStateInterpretedFunction:
		return "INTERPRETED_FRAME"
	case FrameStateArgumentsAdaptor:
		return "ARGUMENTS_ADAPTOR"
	case FrameStateConstructStub:
		return "CONSTRUCT_STUB"
	case FrameStateBuiltinContinuation:
		return "BUILTIN_CONTINUATION_FRAME"
	case FrameStateJavaScriptBuiltinContinuation:
		return "JAVA_SCRIPT_BUILTIN_CONTINUATION_FRAME"
	default:
		return "UNKNOWN_FRAME"
	}
}

// IsJSFunctionType 帧是否对应一个真实的 JS 函数激活
func (t FrameStateType) IsJSFunctionType() bool {
	return t == FrameStateInterpretedFunction || t == FrameStateJavaScriptBuiltinContinuation
}

// FrameStateInfo FrameState 的参数
type FrameStateInfo struct {
	Type      FrameStateType
	BailoutID int
	Shared    *funcinfo.Shared // 帧所属函数，可为 nil
}

func (i FrameStateInfo) String() string {
	if i.Shared == nil {
		return fmt.Sprintf("%s, %d", i.Type, i.BailoutID)
	}
	return fmt.Sprintf("%s, %d, %s", i.Type, i.BailoutID, i.Shared.DebugName())
}

// Oddball 特殊常量值
type Oddball string

// Undefined 未定义值
const Undefined Oddball = "undefined"

// FrameState 的输入下标
const (
	FrameStateParametersInput = 0
	FrameStateLocalsInput     = 1
	FrameStateStackInput      = 2
	FrameStateFunctionInput   = 3
	FrameStateOuterStateInput = 4
)

// ============================================================================
// 操作符构造
// ============================================================================

var (
	startOp          = &Operator{Opcode: OpStart}
	deadOp           = &Operator{Opcode: OpDead}
	branchOp         = &Operator{Opcode: OpBranch, ValueIn: 1, ControlIn: 1}
	ifTrueOp         = &Operator{Opcode: OpIfTrue, ControlIn: 1}
	ifFalseOp        = &Operator{Opcode: OpIfFalse, ControlIn: 1}
	ifSuccessOp      = &Operator{Opcode: OpIfSuccess, ControlIn: 1}
	ifExceptionOp    = &Operator{Opcode: OpIfException, EffectIn: 1, ControlIn: 1}
	returnOp         = &Operator{Opcode: OpReturn, ValueIn: 1, EffectIn: 1, ControlIn: 1}
	referenceEqualOp = &Operator{Opcode: OpReferenceEqual, ValueIn: 2}
	checkpointOp     = &Operator{Opcode: OpCheckpoint, FrameStateIn: 1, EffectIn: 1, ControlIn: 1}
	stackCheckOp     = &Operator{Opcode: OpJSStackCheck, FrameStateIn: 1, EffectIn: 1, ControlIn: 1}
)

// Start 图的起始节点
func Start() *Operator { return startOp }

// DeadOperator 死节点占位符
func DeadOperator() *Operator { return deadOp }

// End 终止节点，控制输入为所有出口
func End(n int) *Operator { return &Operator{Opcode: OpEnd, ControlIn: n} }

// Merge 控制流合并
func Merge(n int) *Operator { return &Operator{Opcode: OpMerge, ControlIn: n, Params: n} }

// Branch 条件分支
func Branch() *Operator { return branchOp }

// IfTrue 分支为真的投影
func IfTrue() *Operator { return ifTrueOp }

// IfFalse 分支为假的投影
func IfFalse() *Operator { return ifFalseOp }

// IfSuccess 调用正常完成的投影
func IfSuccess() *Operator { return ifSuccessOp }

// IfException 调用抛出异常的投影，副作用与控制输入都是调用本身
func IfException() *Operator { return ifExceptionOp }

// Return 函数返回
func Return() *Operator { return returnOp }

// Parameter 函数参数，控制输入为 Start
func Parameter(index int) *Operator {
	return &Operator{Opcode: OpParameter, ControlIn: 1, Params: index}
}

// HeapConstant 堆常量（函数对象、特殊值）
func HeapConstant(value any) *Operator {
	return &Operator{Opcode: OpHeapConstant, Params: value}
}

// NumberConstant 数值常量
func NumberConstant(value float64) *Operator {
	return &Operator{Opcode: OpNumberConstant, Params: value}
}

// Phi 值合并，最后一个输入为控制合并点
func Phi(n int) *Operator {
	return &Operator{Opcode: OpPhi, ValueIn: n, ControlIn: 1, Params: n}
}

// EffectPhi 副作用合并，最后一个输入为控制合并点
func EffectPhi(n int) *Operator {
	return &Operator{Opcode: OpEffectPhi, EffectIn: n, ControlIn: 1, Params: n}
}

// ReferenceEqual 引用相等比较
func ReferenceEqual() *Operator { return referenceEqualOp }

// Checkpoint 去优化检查点
func Checkpoint() *Operator { return checkpointOp }

// FrameStateOp 帧状态，值输入依次为参数、局部变量、栈顶、函数，帧状态输入为外层帧
func FrameStateOp(info FrameStateInfo) *Operator {
	return &Operator{Opcode: OpFrameState, ValueIn: 4, FrameStateIn: 1, Params: info}
}

// StateValues 状态值集合
func StateValues(n int) *Operator {
	return &Operator{Opcode: OpStateValues, ValueIn: n, Params: n}
}

// JSCall 函数调用
func JSCall(p CallParameters) *Operator {
	if p.Arity < 2 {
		panic(fmt.Sprintf("graph: JSCall arity %d < 2", p.Arity))
	}
	return &Operator{Opcode: OpJSCall, ValueIn: p.Arity, FrameStateIn: 1, EffectIn: 1, ControlIn: 1, Params: p}
}

// JSConstruct 构造调用
func JSConstruct(p ConstructParameters) *Operator {
	if p.Arity < 2 {
		panic(fmt.Sprintf("graph: JSConstruct arity %d < 2", p.Arity))
	}
	return &Operator{Opcode: OpJSConstruct, ValueIn: p.Arity, FrameStateIn: 1, EffectIn: 1, ControlIn: 1, Params: p}
}

// JSCreateClosure 闭包创建
func JSCreateClosure(p CreateClosureParameters) *Operator {
	return &Operator{Opcode: OpJSCreateClosure, EffectIn: 1, ControlIn: 1, Params: p}
}

// JSStackCheck 栈检查
func JSStackCheck() *Operator { return stackCheckOp }

// ============================================================================
// 参数访问
// ============================================================================

// CallParametersOf 读取 JSCall 的参数
func CallParametersOf(op *Operator) CallParameters {
	if op.Opcode != OpJSCall {
		panic(fmt.Sprintf("graph: CallParametersOf(%s)", op.Mnemonic()))
	}
	return op.Params.(CallParameters)
}

// ConstructParametersOf 读取 JSConstruct 的参数
func ConstructParametersOf(op *Operator) ConstructParameters {
	if op.Opcode != OpJSConstruct {
		panic(fmt.Sprintf("graph: ConstructParametersOf(%s)", op.Mnemonic()))
	}
	return op.Params.(ConstructParameters)
}

// CreateClosureParametersOf 读取 JSCreateClosure 的参数
func CreateClosureParametersOf(op *Operator) CreateClosureParameters {
	if op.Opcode != OpJSCreateClosure {
		panic(fmt.Sprintf("graph: CreateClosureParametersOf(%s)", op.Mnemonic()))
	}
	return op.Params.(CreateClosureParameters)
}

// FrameStateInfoOf 读取 FrameState 的参数
func FrameStateInfoOf(op *Operator) FrameStateInfo {
	if op.Opcode != OpFrameState {
		panic(fmt.Sprintf("graph: FrameStateInfoOf(%s)", op.Mnemonic()))
	}
	return op.Params.(FrameStateInfo)
}

// CallFrequencyOf 读取调用类操作携带的频率
func CallFrequencyOf(op *Operator) CallFrequency {
	switch op.Opcode {
	case OpJSCall:
		return CallParametersOf(op).Frequency
	case OpJSConstruct:
		return ConstructParametersOf(op).Frequency
	default:
		panic(fmt.Sprintf("graph: CallFrequencyOf(%s)", op.Mnemonic()))
	}
}
