package graph

// ============================================================================
// 操作码定义
// ============================================================================

// Opcode 节点操作码
type Opcode int

const (
	// 控制结构
	OpStart Opcode = iota
	OpEnd
	OpDead
	OpMerge
	OpBranch
	OpIfTrue
	OpIfFalse
	OpIfSuccess
	OpIfException
	OpReturn

	// 常量与参数
	OpParameter
	OpHeapConstant
	OpNumberConstant

	// 值合并
	OpPhi
	OpEffectPhi

	// 简化操作
	OpReferenceEqual

	// 去优化元数据
	OpCheckpoint
	OpFrameState
	OpStateValues

	// JS 级操作
	OpJSCall
	OpJSConstruct
	OpJSCreateClosure
	OpJSStackCheck
)

// String 返回操作码的助记符
func (op Opcode) String() string {
	switch op {
	case OpStart:
		return "Start"
	case OpEnd:
		return "End"
	case OpDead:
		return "Dead"
	case OpMerge:
		return "Merge"
	case OpBranch:
		return "Branch"
	case OpIfTrue:
		return "IfTrue"
	case OpIfFalse:
		return "IfFalse"
	case OpIfSuccess:
		return "IfSuccess"
	case OpIfException:
		return "IfException"
	case OpReturn:
		return "Return"
	case OpParameter:
		return "Parameter"
	case OpHeapConstant:
		return "HeapConstant"
	case OpNumberConstant:
		return "NumberConstant"
	case OpPhi:
		return "Phi"
	case OpEffectPhi:
		return "EffectPhi"
	case OpReferenceEqual:
		return "ReferenceEqual"
	case OpCheckpoint:
		return "Checkpoint"
	case OpFrameState:
		return "FrameState"
	case OpStateValues:
		return "StateValues"
	case OpJSCall:
		return "JSCall"
	case OpJSConstruct:
		return "JSConstruct"
	case OpJSCreateClosure:
		return "JSCreateClosure"
	case OpJSStackCheck:
		return "JSStackCheck"
	default:
		return "Unknown"
	}
}

// IsInlineeOpcode 是否为可以被内联替换的调用类操作
func IsInlineeOpcode(op Opcode) bool {
	return op == OpJSCall || op == OpJSConstruct
}
