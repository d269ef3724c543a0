package graph

import (
	"fmt"
	"io"
	"strings"
)

// Print 按节点 ID 顺序输出所有存活节点
//
// 输出格式：
//
//	#7:JSCall[3, 10](#5, #6, #2, #4, #3, #1) "site"
func Print(w io.Writer, g *Graph) error {
	for i := range g.nodes {
		n := NodeID(i)
		if g.nodes[i].killed {
			continue
		}
		if _, err := fmt.Fprintln(w, g.Format(n)); err != nil {
			return err
		}
	}
	return nil
}

// Format 格式化单个节点
func (g *Graph) Format(n NodeID) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d:%s", n, g.Op(n))
	inputs := g.at(n).inputs
	if len(inputs) > 0 {
		sb.WriteString("(")
		for i, input := range inputs {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "#%d", input)
		}
		sb.WriteString(")")
	}
	if name := g.at(n).name; name != "" {
		fmt.Fprintf(&sb, " %q", name)
	}
	return sb.String()
}

// LiveNodes 返回所有存活节点中满足条件的节点，按 ID 升序
func (g *Graph) LiveNodes(match func(NodeID) bool) []NodeID {
	var out []NodeID
	for i := range g.nodes {
		n := NodeID(i)
		if g.nodes[i].killed {
			continue
		}
		if match == nil || match(n) {
			out = append(out, n)
		}
	}
	return out
}
