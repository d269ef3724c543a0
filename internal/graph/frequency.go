package graph

import "strconv"

// CallFrequency 调用点的相对执行频率估计
//
// 频率要么是一个已知的非负数，要么是"未知"。未知频率与已知频率之间
// 不存在数值上的大小关系，调用方必须先检查 IsKnown。
type CallFrequency struct {
	value float64
	known bool
}

// UnknownFrequency 返回未知频率
func UnknownFrequency() CallFrequency {
	return CallFrequency{}
}

// NewCallFrequency 创建已知频率
func NewCallFrequency(value float64) CallFrequency {
	if value < 0 {
		panic("graph: negative call frequency")
	}
	return CallFrequency{value: value, known: true}
}

// IsKnown 频率是否已知
func (f CallFrequency) IsKnown() bool { return f.known }

// IsUnknown 频率是否未知
func (f CallFrequency) IsUnknown() bool { return !f.known }

// Value 返回已知频率的值
func (f CallFrequency) Value() float64 {
	if !f.known {
		panic("graph: value of unknown call frequency")
	}
	return f.value
}

// Mul 按比例缩放频率，未知频率保持未知
func (f CallFrequency) Mul(factor CallFrequency) CallFrequency {
	if !f.known || !factor.known {
		return UnknownFrequency()
	}
	return NewCallFrequency(f.value * factor.value)
}

func (f CallFrequency) String() string {
	if !f.known {
		return "unknown"
	}
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}
