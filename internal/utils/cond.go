package querybuilder

import "strings"

type condType int

const (
	condAnd condType = iota + 1
	condOr
)

func (c condType) String() string {
	if c == condOr {
		return "OR"
	}
	return "AND"
}

// condition is one WHERE clause fragment with its bind arguments.
type condition struct {
	joiner condType
	clause string
	args   []interface{}
}

// joinConditions renders the fragments in order, each prefixed by its own
// connective.
func joinConditions(conds []condition) (string, []interface{}) {
	parts := make([]string, 0, len(conds)*2)
	var args []interface{}
	for i, cond := range conds {
		if i > 0 {
			parts = append(parts, cond.joiner.String())
		}
		parts = append(parts, cond.clause)
		args = append(args, cond.args...)
	}
	return strings.Join(parts, " "), args
}
