package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tangzhangming/inlineheur/internal/inlining"
)

// WriteText 输出可读的决策序列
//
// 输出只依赖决策本身，不包含节点编号（调用点有调试名时），可用于黄金文件比较。
func (r *Result) WriteText(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "scenario: %s\n", r.Name)
	sb.WriteString("decisions:\n")
	for _, d := range r.Decisions {
		fmt.Fprintf(&sb, "  %s\n", d)
	}
	fmt.Fprintf(&sb, "cumulative: %d\n", r.CumulativeCount)
	residual := "none"
	if len(r.ResidualCalls) > 0 {
		residual = strings.Join(r.ResidualCalls, ", ")
	}
	fmt.Fprintf(&sb, "residual: %s\n", residual)
	_, err := io.WriteString(w, sb.String())
	return err
}

type jsonDecision struct {
	Node       int      `json:"node"`
	Name       string   `json:"name,omitempty"`
	Op         string   `json:"op"`
	Kind       string   `json:"kind"`
	Reason     string   `json:"reason"`
	Targets    []string `json:"targets"`
	Size       int      `json:"size"`
	Frequency  *float64 `json:"frequency"` // null 表示未知
	Cumulative int      `json:"cumulative"`
}

type jsonResult struct {
	Scenario   string         `json:"scenario"`
	Decisions  []jsonDecision `json:"decisions"`
	Cumulative int            `json:"cumulative"`
	Residual   []string       `json:"residual"`
	Stats      inlining.Stats `json:"stats"`
	Iterations int            `json:"iterations"`
}

// WriteJSON 以 JSON 输出结果
func (r *Result) WriteJSON(w io.Writer) error {
	out := jsonResult{
		Scenario:   r.Name,
		Decisions:  make([]jsonDecision, len(r.Decisions)),
		Cumulative: r.CumulativeCount,
		Residual:   r.ResidualCalls,
		Stats:      r.Stats,
		Iterations: r.Reducer.Iterations,
	}
	if out.Residual == nil {
		out.Residual = []string{}
	}
	for i, d := range r.Decisions {
		jd := jsonDecision{
			Node:       int(d.Node),
			Name:       d.Name,
			Op:         d.Op,
			Kind:       d.Kind.String(),
			Reason:     d.Reason,
			Targets:    d.Targets,
			Size:       d.Size,
			Cumulative: d.Cumulative,
		}
		if d.Frequency.IsKnown() {
			v := d.Frequency.Value()
			jd.Frequency = &v
		}
		out.Decisions[i] = jd
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
