package stage

import (
	"fmt"
	"strings"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/state"
)

// PrerequisiteNotMet is returned as guidance when an operation is invoked out
// of order. It never carries a fault: no work was done and no state changed.
type PrerequisiteNotMet struct {
	Operation Operation
	Missing   state.Stage
	Reason    string
}

func (e *PrerequisiteNotMet) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cannot run %s yet: %s has not been completed", e.Operation, e.Missing)
	if e.Reason != "" {
		fmt.Fprintf(&sb, " (%s)", e.Reason)
	}
	sb.WriteString(". Required order: ")
	sb.WriteString(OrderString())
	return sb.String()
}

// OrderString renders the canonical stage order.
func OrderString() string {
	parts := make([]string, len(state.Order))
	for i, st := range state.Order {
		parts[i] = string(st)
	}
	return strings.Join(parts, " → ")
}
