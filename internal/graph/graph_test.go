package graph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/inlineheur/internal/funcinfo"
)

// newCall 构建一个最小的 JSCall：目标、接收者、帧状态、副作用、控制
func newCall(g *Graph, target NodeID, freq CallFrequency) NodeID {
	undef := g.HeapConstant(Undefined)
	empty := g.NewNode(StateValues(0))
	fs := g.NewNode(FrameStateOp(FrameStateInfo{}), empty, empty, undef, undef, g.Start())
	return g.NewNode(JSCall(CallParameters{Arity: 2, Frequency: freq}), target, undef, fs, g.Start(), g.Start())
}

// TestNewNodeMaintainsUses 测试创建节点时维护使用边
func TestNewNodeMaintainsUses(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	b := g.NewNode(NumberConstant(2))
	eq := g.NewNode(ReferenceEqual(), a, b)

	assert.Equal(t, 1, g.UseCount(a))
	assert.Equal(t, []Edge{{From: eq, Index: 0}}, g.Uses(a))
	assert.Equal(t, []Edge{{From: eq, Index: 1}}, g.Uses(b))
	require.NoError(t, Verify(g))
}

func TestNewNodeWrongArityPanics(t *testing.T) {
	g := New()
	assert.Panics(t, func() { g.NewNode(ReferenceEqual(), g.Start()) })
}

func TestReplaceInput(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	b := g.NewNode(NumberConstant(2))
	eq := g.NewNode(ReferenceEqual(), a, a)
	require.Equal(t, 2, g.UseCount(a))

	g.ReplaceInput(eq, 1, b)

	assert.Equal(t, 1, g.UseCount(a))
	assert.Equal(t, 1, g.UseCount(b))
	assert.Equal(t, b, g.InputAt(eq, 1))
	require.NoError(t, Verify(g))
}

func TestCloneNodeSharesInputs(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	sv := g.NewNode(StateValues(1), a)
	g.SetName(sv, "locals")

	clone := g.CloneNode(sv)

	assert.NotEqual(t, sv, clone)
	assert.Same(t, g.Op(sv), g.Op(clone))
	assert.Equal(t, "locals", g.Name(clone))
	assert.Equal(t, 2, g.UseCount(a))
	require.NoError(t, Verify(g))
}

func TestKill(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	b := g.NewNode(NumberConstant(2))
	eq := g.NewNode(ReferenceEqual(), a, b)

	g.Kill(eq)
	g.Kill(eq)

	assert.True(t, g.IsDead(eq))
	assert.True(t, g.IsKilled(eq))
	assert.Equal(t, 0, g.UseCount(a))
	assert.Equal(t, 0, g.UseCount(b))
	assert.Panics(t, func() { g.NewNode(StateValues(1), eq) })
	require.NoError(t, Verify(g))
}

// TestNewNodeKilledInputLeavesGraphIntact 测试使用已杀死节点失败时图保持不变
func TestNewNodeKilledInputLeavesGraphIntact(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	b := g.NewNode(NumberConstant(2))
	eq := g.NewNode(ReferenceEqual(), a, b)
	g.Kill(eq)
	before := g.NodeCount()

	assert.PanicsWithValue(t, fmt.Sprintf("graph: use of killed node #%d", eq), func() {
		g.NewNode(ReferenceEqual(), a, eq)
	})
	assert.Equal(t, before, g.NodeCount())
	assert.Equal(t, 0, g.UseCount(a))
	require.NoError(t, Verify(g))
}

func TestDeadPlaceholder(t *testing.T) {
	g := New()
	d := g.Dead()
	assert.Equal(t, d, g.Dead())
	assert.True(t, g.IsDead(d))
	assert.False(t, g.IsKilled(d))
}

func TestHeapConstantIsCanonical(t *testing.T) {
	g := New()
	fn := funcinfo.NewClosure(funcinfo.NewShared("f", 10), 0)
	assert.Equal(t, g.HeapConstant(fn), g.HeapConstant(fn))
	assert.NotEqual(t, g.HeapConstant(fn), g.HeapConstant(Undefined))
}

func TestInputLayout(t *testing.T) {
	g := New()
	fn := funcinfo.NewClosure(funcinfo.NewShared("f", 10), 0)
	call := newCall(g, g.HeapConstant(fn), UnknownFrequency())

	assert.Equal(t, 2, g.FirstFrameStateIndex(call))
	assert.Equal(t, 3, g.FirstEffectIndex(call))
	assert.Equal(t, 4, g.FirstControlIndex(call))
	assert.Equal(t, g.HeapConstant(fn), g.ValueInput(call, 0))
	assert.Equal(t, OpFrameState, g.Opcode(g.FrameStateInput(call)))
	assert.Equal(t, g.Start(), g.EffectInput(call, 0))
	assert.Equal(t, g.Start(), g.ControlInput(call, 0))
	assert.Panics(t, func() { g.ValueInput(call, 2) })

	assert.True(t, g.IsValueEdge(Edge{From: call, Index: 1}))
	assert.True(t, g.IsFrameStateEdge(Edge{From: call, Index: 2}))
	assert.True(t, g.IsEffectEdge(Edge{From: call, Index: 3}))
	assert.True(t, g.IsControlEdge(Edge{From: call, Index: 4}))
}

// TestReplaceWithValue 测试调用的使用者被重定向到新的三元组
func TestReplaceWithValue(t *testing.T) {
	g := New()
	fn := funcinfo.NewClosure(funcinfo.NewShared("f", 10), 0)
	call := newCall(g, g.HeapConstant(fn), UnknownFrequency())
	ifSuccess := g.NewNode(IfSuccess(), call)
	ifException := g.NewNode(IfException(), call, call)
	ret := g.NewNode(Return(), call, call, ifSuccess)
	handler := g.NewNode(Return(), ifException, ifException, ifException)

	value := g.NewNode(NumberConstant(42))
	g.ReplaceWithValue(call, value, g.Start(), g.Start())

	_, exceptional := g.IsExceptionalCall(call)
	assert.False(t, exceptional)
	assert.True(t, g.IsKilled(ifSuccess))
	assert.Equal(t, []NodeID{value, g.Start(), g.Start()}, g.Inputs(ret))
	assert.Equal(t, []NodeID{g.Start(), g.Dead()}, g.Inputs(ifException))
	assert.Equal(t, 0, g.UseCount(call))
	assert.Equal(t, 3, g.UseCount(ifException), "handler keeps using the projection")
	assert.False(t, g.IsDead(handler))
	require.NoError(t, Verify(g))
}

func TestIsExceptionalCall(t *testing.T) {
	g := New()
	fn := funcinfo.NewClosure(funcinfo.NewShared("f", 10), 0)
	call := newCall(g, g.HeapConstant(fn), UnknownFrequency())
	_, ok := g.IsExceptionalCall(call)
	require.False(t, ok)

	ifException := g.NewNode(IfException(), call, call)
	got, ok := g.IsExceptionalCall(call)
	require.True(t, ok)
	assert.Equal(t, ifException, got)
}

func TestVerifyReportsKilledInput(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	sv := g.NewNode(StateValues(1), a)
	// 直接篡改内部状态以模拟悬空引用
	g.nodes[a].killed = true

	err := Verify(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uses killed")
	_ = sv
}

func TestPrint(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	sv := g.NewNode(StateValues(1), a)
	g.SetName(sv, "locals")
	g.Kill(g.NewNode(StateValues(1), a))

	var sb strings.Builder
	require.NoError(t, Print(&sb, g))

	want := "#0:Start\n#1:NumberConstant[1]\n#2:StateValues[1](#1) \"locals\"\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("Print() mismatch (-want +got):\n%s", diff)
	}
}

func TestLiveNodes(t *testing.T) {
	g := New()
	a := g.NewNode(NumberConstant(1))
	b := g.NewNode(NumberConstant(2))
	g.Kill(a)

	got := g.LiveNodes(func(n NodeID) bool { return g.Opcode(n) == OpNumberConstant })
	assert.Equal(t, []NodeID{b}, got)
}
