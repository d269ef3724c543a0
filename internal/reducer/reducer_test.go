package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/inlineheur/internal/graph"
)

// foldReducer 把 ReferenceEqual(x, x) 替换为常量 1
type foldReducer struct {
	g         *graph.Graph
	visited   map[graph.NodeID]int
	finalizes int
}

func (r *foldReducer) Name() string { return "fold" }

func (r *foldReducer) Reduce(n graph.NodeID) Reduction {
	r.visited[n]++
	if r.g.Opcode(n) != graph.OpReferenceEqual {
		return NoChange()
	}
	if r.g.InputAt(n, 0) != r.g.InputAt(n, 1) {
		return NoChange()
	}
	return Replace(r.g.NewNode(graph.NumberConstant(1)))
}

func (r *foldReducer) Finalize() bool {
	r.finalizes++
	return false
}

// budgetReducer 在 Finalize 中每次消耗一个预算单位
type budgetReducer struct {
	budget int
}

func (r *budgetReducer) Name() string                  { return "budget" }
func (r *budgetReducer) Reduce(graph.NodeID) Reduction { return NoChange() }

func (r *budgetReducer) Finalize() bool {
	if r.budget == 0 {
		return false
	}
	r.budget--
	return true
}

func TestReductionConstructors(t *testing.T) {
	assert.False(t, NoChange().Changed())
	assert.Equal(t, graph.NoNode, NoChange().Replacement())
	assert.True(t, Changed(3).Changed())
	assert.Equal(t, graph.NodeID(3), Changed(3).Replacement())
	assert.Equal(t, graph.NodeID(4), Replace(4).Replacement())
}

// TestReduceGraphAppliesReplacement 测试替换被应用并且原节点被杀死
func TestReduceGraphAppliesReplacement(t *testing.T) {
	g := graph.New()
	a := g.NewNode(graph.NumberConstant(7))
	eq := g.NewNode(graph.ReferenceEqual(), a, a)
	user := g.NewNode(graph.StateValues(1), eq)

	fold := &foldReducer{g: g, visited: make(map[graph.NodeID]int)}
	gr := NewGraphReducer(g, nil)
	gr.AddReducer(fold)

	require.True(t, gr.ReduceGraph())

	assert.True(t, g.IsKilled(eq))
	assert.Equal(t, graph.OpNumberConstant, g.Opcode(g.InputAt(user, 0)))
	require.NoError(t, graph.Verify(g))

	stats := gr.Stats()
	assert.Equal(t, 2, stats.Iterations)
	assert.Equal(t, 1, stats.Reductions)
	assert.Equal(t, 1, stats.PerReducer["fold"])
	assert.True(t, stats.ReachedFixed)
	assert.Equal(t, 2, fold.finalizes)
}

// TestSweepVisitsNewNodes 测试同一轮中新建的节点也会被访问
func TestSweepVisitsNewNodes(t *testing.T) {
	g := graph.New()
	a := g.NewNode(graph.NumberConstant(7))
	g.NewNode(graph.ReferenceEqual(), a, a)

	fold := &foldReducer{g: g, visited: make(map[graph.NodeID]int)}
	gr := NewGraphReducer(g, nil)
	gr.AddReducer(fold)

	assert.True(t, gr.Sweep())
	replacement := graph.NodeID(g.NodeCount() - 1)
	assert.Equal(t, 1, fold.visited[replacement])
}

// TestFinalizeDrivesIterations 测试 Finalize 的修改会触发新一轮扫描
func TestFinalizeDrivesIterations(t *testing.T) {
	g := graph.New()
	gr := NewGraphReducer(g, nil)
	gr.AddReducer(&budgetReducer{budget: 3})

	require.True(t, gr.ReduceGraph())
	stats := gr.Stats()
	assert.Equal(t, 4, stats.Iterations)
	assert.Equal(t, 3, stats.Finalizations)
}

func TestMaxIterations(t *testing.T) {
	g := graph.New()
	gr := NewGraphReducer(g, &Config{MaxIterations: 2})
	gr.AddReducer(&budgetReducer{budget: 10})

	assert.False(t, gr.ReduceGraph())
	assert.False(t, gr.Stats().ReachedFixed)
	assert.Equal(t, 2, gr.Stats().Iterations)
}
