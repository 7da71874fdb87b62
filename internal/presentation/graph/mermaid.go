package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/statecraft/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// CurrentState is the active leaf state. Its ancestors are styled as active too.
	CurrentState string
	// VisitedStates are styled as visited.
	VisitedStates []string
}

// GenerateMermaid produces a Mermaid flowchart for a machine definition.
// Compound states become subgraphs. Shapes:
// - Final: (((Double circle)))
// - Compound: subgraph
// - Default: ([Stadium])
// Delayed transitions are dotted, always transitions are thick.
func GenerateMermaid(g domain.MachineGraph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	children := make(map[string][]domain.StateGraph)
	for _, s := range g.States {
		children[s.Parent()] = append(children[s.Parent()], s)
	}

	sb.WriteString("    __start((\" \"))\n")
	sb.WriteString(fmt.Sprintf("    __start --> %s\n", sanitizeMermaidID(g.Initial)))
	writeStates(&sb, children, "", 1)

	for _, s := range g.States {
		from := sanitizeMermaidID(s.Name)
		for _, e := range s.Edges {
			to := from
			if e.Target != "" {
				to = sanitizeMermaidID(e.Target)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow(e), to))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.VisitedStates {
			id := sanitizeMermaidID(name)
			if id != "" && !seen[id] {
				seen[id] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
			}
		}
		if overlay.CurrentState != "" {
			for _, name := range lineage(overlay.CurrentState) {
				sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(name)))
			}
		}
	}

	return sb.String()
}

func writeStates(sb *strings.Builder, children map[string][]domain.StateGraph, parent string, depth int) {
	indent := strings.Repeat("    ", depth)
	for _, s := range children[parent] {
		id := sanitizeMermaidID(s.Name)
		label := s.Name[len(parent):]
		label = strings.TrimPrefix(label, ".")

		if nested, ok := children[s.Name]; ok && len(nested) > 0 {
			sb.WriteString(fmt.Sprintf("%ssubgraph %s[\"%s\"]\n", indent, id, label))
			writeStates(sb, children, s.Name, depth+1)
			sb.WriteString(indent + "end\n")
			continue
		}

		opener, closer := "([", "])"
		if s.Final {
			opener, closer = "(((", ")))"
		}
		sb.WriteString(fmt.Sprintf("%s%s%s\"%s\"%s\n", indent, id, opener, label, closer))
	}
}

func arrow(e domain.Edge) string {
	var label string
	switch e.Kind {
	case domain.EdgeAfter:
		label = "after " + e.Delay.String()
	case domain.EdgeAlways:
		label = "always"
	default:
		label = e.Event
	}
	if e.Guarded {
		label += " [guarded]"
	}
	label = strings.ReplaceAll(label, "\"", "'")

	switch e.Kind {
	case domain.EdgeAfter:
		return fmt.Sprintf("-. \"%s\" .->", label)
	case domain.EdgeAlways:
		return fmt.Sprintf("== \"%s\" ==>", label)
	}
	return fmt.Sprintf("-- \"%s\" -->", label)
}

// lineage returns state and its ancestors, innermost first.
func lineage(state string) []string {
	out := []string{state}
	for i := len(state) - 1; i >= 0; i-- {
		if state[i] == '.' {
			out = append(out, state[:i])
		}
	}
	return out
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
