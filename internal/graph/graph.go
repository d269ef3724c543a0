// graph.go - 节点图
//
// 本文件实现编译器 IR 的节点图（sea of nodes）。
//
// 节点存放在图内部的数组中，通过稳定的 NodeID 引用；边是（使用者, 输入下标）对，
// 而不是指针。每个节点维护自己的使用边列表，因此使用计数始终是精确的，
// 可以在修改前即时读取。
//
// 节点从不释放，只会被 Kill：Kill 会断开节点的全部输入并打上死亡标记，
// 之后任何对它的访问都应当先检查 IsDead。

package graph

import (
	"fmt"
	"slices"
)

// NodeID 节点标识
type NodeID int32

// NoNode 无效节点
const NoNode NodeID = -1

// Edge 使用边：From 节点的第 Index 个输入指向被使用的节点
type Edge struct {
	From  NodeID
	Index int
}

// node 节点数据
type node struct {
	op     *Operator
	inputs []NodeID
	uses   []Edge
	killed bool
	name   string
}

// Graph 节点图
type Graph struct {
	nodes     []node
	start     NodeID
	dead      NodeID
	constants map[any]NodeID
}

// New 创建只包含 Start 节点的图
func New() *Graph {
	g := &Graph{
		dead:      NoNode,
		constants: make(map[any]NodeID),
	}
	g.start = g.NewNode(Start())
	return g
}

// ============================================================================
// 节点创建
// ============================================================================

// NewNode 创建新节点
func (g *Graph) NewNode(op *Operator, inputs ...NodeID) NodeID {
	if len(inputs) != op.InputCount() {
		panic(fmt.Sprintf("graph: %s expects %d inputs, got %d", op.Mnemonic(), op.InputCount(), len(inputs)))
	}
	// 先检查全部输入，避免失败时留下半构建的节点
	for _, input := range inputs {
		g.checkLive(input)
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{op: op, inputs: slices.Clone(inputs)})
	for i, input := range inputs {
		g.addUse(input, Edge{From: id, Index: i})
	}
	return id
}

// CloneNode 复制节点，新节点与原节点共享操作符和全部输入
func (g *Graph) CloneNode(n NodeID) NodeID {
	g.checkLive(n)
	clone := g.NewNode(g.nodes[n].op, g.nodes[n].inputs...)
	g.nodes[clone].name = g.nodes[n].name
	return clone
}

// Start 返回起始节点
func (g *Graph) Start() NodeID {
	return g.start
}

// Dead 返回死节点占位符，用于切断不再需要的输入
func (g *Graph) Dead() NodeID {
	if g.dead == NoNode {
		g.dead = g.NewNode(DeadOperator())
	}
	return g.dead
}

// HeapConstant 返回堆常量节点，同一个值总是对应同一个节点
func (g *Graph) HeapConstant(value any) NodeID {
	if n, ok := g.constants[value]; ok {
		return n
	}
	n := g.NewNode(HeapConstant(value))
	g.constants[value] = n
	return n
}

// ============================================================================
// 节点访问
// ============================================================================

// NodeCount 图中节点总数（包括已死亡的节点）
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Op 返回节点的操作符
func (g *Graph) Op(n NodeID) *Operator {
	return g.at(n).op
}

// Opcode 返回节点的操作码
func (g *Graph) Opcode(n NodeID) Opcode {
	return g.at(n).op.Opcode
}

// InputCount 返回输入个数
func (g *Graph) InputCount(n NodeID) int {
	return len(g.at(n).inputs)
}

// InputAt 返回第 i 个输入
func (g *Graph) InputAt(n NodeID, i int) NodeID {
	return g.at(n).inputs[i]
}

// Inputs 返回输入的副本
func (g *Graph) Inputs(n NodeID) []NodeID {
	return slices.Clone(g.at(n).inputs)
}

// Uses 返回使用边的副本
func (g *Graph) Uses(n NodeID) []Edge {
	return slices.Clone(g.at(n).uses)
}

// UseCount 返回使用边的数量
func (g *Graph) UseCount(n NodeID) int {
	return len(g.at(n).uses)
}

// IsDead 节点是否已被杀死或本身就是死节点占位符
func (g *Graph) IsDead(n NodeID) bool {
	nd := g.at(n)
	return nd.killed || nd.op.Opcode == OpDead
}

// IsKilled 节点是否已被杀死
func (g *Graph) IsKilled(n NodeID) bool {
	return g.at(n).killed
}

// Name 返回节点的调试名
func (g *Graph) Name(n NodeID) string {
	return g.at(n).name
}

// SetName 设置节点的调试名
func (g *Graph) SetName(n NodeID, name string) {
	g.at(n).name = name
}

// Describe 返回形如 #12:JSCall 的简短描述
func (g *Graph) Describe(n NodeID) string {
	return fmt.Sprintf("#%d:%s", n, g.Op(n).Mnemonic())
}

// ============================================================================
// 节点修改
// ============================================================================

// ReplaceInput 替换第 i 个输入
func (g *Graph) ReplaceInput(n NodeID, i int, input NodeID) {
	g.checkLive(n)
	g.checkLive(input)
	old := g.nodes[n].inputs[i]
	if old == input {
		return
	}
	g.removeUse(old, Edge{From: n, Index: i})
	g.nodes[n].inputs[i] = input
	g.addUse(input, Edge{From: n, Index: i})
}

// UpdateEdge 将使用边改为指向 to
func (g *Graph) UpdateEdge(e Edge, to NodeID) {
	g.ReplaceInput(e.From, e.Index, to)
}

// ReplaceUses 把 n 的全部使用改为使用 replacement
func (g *Graph) ReplaceUses(n, replacement NodeID) {
	for _, e := range g.Uses(n) {
		g.UpdateEdge(e, replacement)
	}
}

// Kill 杀死节点：断开全部输入并打上死亡标记
func (g *Graph) Kill(n NodeID) {
	nd := g.at(n)
	if nd.killed {
		return
	}
	for i, input := range nd.inputs {
		if input != NoNode {
			g.removeUse(input, Edge{From: n, Index: i})
			nd.inputs[i] = NoNode
		}
	}
	nd.killed = true
}

// ============================================================================
// 内部辅助
// ============================================================================

func (g *Graph) at(n NodeID) *node {
	if n < 0 || int(n) >= len(g.nodes) {
		panic(fmt.Sprintf("graph: invalid node id %d", n))
	}
	return &g.nodes[n]
}

func (g *Graph) checkLive(n NodeID) {
	if g.at(n).killed {
		panic(fmt.Sprintf("graph: use of killed node #%d", n))
	}
}

func (g *Graph) addUse(n NodeID, e Edge) {
	nd := g.at(n)
	nd.uses = append(nd.uses, e)
}

func (g *Graph) removeUse(n NodeID, e Edge) {
	nd := g.at(n)
	i := slices.Index(nd.uses, e)
	if i < 0 {
		panic(fmt.Sprintf("graph: #%d has no use edge from #%d[%d]", n, e.From, e.Index))
	}
	nd.uses = slices.Delete(nd.uses, i, i+1)
}
