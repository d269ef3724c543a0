package graph

import (
	"errors"
	"fmt"
	"slices"
)

// Verify 检查图的结构不变式
//
//   - 每条输入边都有对应的使用边，反之亦然
//   - 存活节点不引用已杀死的节点
//   - 已杀死的节点不再持有任何输入
func Verify(g *Graph) error {
	var errs []error
	for i := range g.nodes {
		n := NodeID(i)
		nd := &g.nodes[i]
		if nd.killed {
			for _, input := range nd.inputs {
				if input != NoNode {
					errs = append(errs, fmt.Errorf("killed %s still has input #%d", g.Describe(n), input))
				}
			}
		} else {
			for idx, input := range nd.inputs {
				if input == NoNode {
					errs = append(errs, fmt.Errorf("%s input %d is missing", g.Describe(n), idx))
					continue
				}
				if g.nodes[input].killed {
					errs = append(errs, fmt.Errorf("%s input %d uses killed #%d", g.Describe(n), idx, input))
				}
				if !slices.Contains(g.nodes[input].uses, Edge{From: n, Index: idx}) {
					errs = append(errs, fmt.Errorf("%s input %d has no matching use edge on #%d", g.Describe(n), idx, input))
				}
			}
		}
		for _, e := range nd.uses {
			from := &g.nodes[e.From]
			if e.Index >= len(from.inputs) || from.inputs[e.Index] != n {
				errs = append(errs, fmt.Errorf("%s has stale use edge from #%d[%d]", g.Describe(n), e.From, e.Index))
			}
		}
	}
	return errors.Join(errs...)
}
