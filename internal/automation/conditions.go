package automation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/supportdesk/ticketflow/internal/domain"
)

// Evaluator matches a ticket's field values against declarative conditions.
// The zero value is the permissive evaluator: an operator applied to an
// incompatible operand type evaluates to false instead of erroring, matching
// the behavior rule authors rely on. Strict surfaces those mismatches as
// errors, which the engine records as rule failures.
type Evaluator struct {
	Strict bool
}

// Evaluate applies AND semantics over the condition list, short-circuiting on
// the first condition that does not hold. An empty list always matches.
func (e Evaluator) Evaluate(conditions []domain.AutomationCondition, ticket *domain.Ticket) (bool, error) {
	for _, cond := range conditions {
		ok, err := e.evaluateOne(cond, ticket)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e Evaluator) evaluateOne(cond domain.AutomationCondition, ticket *domain.Ticket) (bool, error) {
	value, known := fieldValue(ticket, cond.Field)
	if !known && e.Strict {
		return false, fmt.Errorf("unknown field %q", cond.Field)
	}

	// A null field value can only satisfy equality against null (or inequality
	// against anything else); every other operator fails on it.
	if value == nil {
		switch cond.Op {
		case domain.OpEq:
			return cond.Value == nil, nil
		case domain.OpNeq:
			return cond.Value != nil, nil
		default:
			return false, e.mismatch(cond, "null field value")
		}
	}

	switch cond.Op {
	case domain.OpEq:
		return valuesEqual(value, cond.Value), nil
	case domain.OpNeq:
		return !valuesEqual(value, cond.Value), nil
	case domain.OpGt, domain.OpLt, domain.OpGte, domain.OpLte:
		left, leftOK := toFloat(value)
		right, rightOK := toFloat(cond.Value)
		if !leftOK || !rightOK {
			return false, e.mismatch(cond, "ordering requires numeric operands")
		}
		switch cond.Op {
		case domain.OpGt:
			return left > right, nil
		case domain.OpLt:
			return left < right, nil
		case domain.OpGte:
			return left >= right, nil
		default:
			return left <= right, nil
		}
	case domain.OpContains:
		str, strOK := value.(string)
		target, targetOK := cond.Value.(string)
		if !strOK || !targetOK {
			return false, e.mismatch(cond, "contains requires string operands")
		}
		return strings.Contains(str, target), nil
	case domain.OpIn:
		members, ok := cond.Value.([]any)
		if !ok {
			return false, e.mismatch(cond, "in requires an array target")
		}
		for _, member := range members {
			if valuesEqual(value, member) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, e.mismatch(cond, "unknown operator")
	}
}

func (e Evaluator) mismatch(cond domain.AutomationCondition, reason string) error {
	if !e.Strict {
		return nil
	}
	return fmt.Errorf("condition on %q with operator %q: %s", cond.Field, cond.Op, reason)
}

// fieldValue resolves a ticket field by its enumerated name. The second return
// reports whether the field is part of the accessor set; unknown fields resolve
// to a null value.
func fieldValue(ticket *domain.Ticket, field domain.TicketField) (any, bool) {
	switch field {
	case domain.FieldPriority:
		return string(ticket.Priority), true
	case domain.FieldStatus:
		return string(ticket.Status), true
	case domain.FieldIssueType:
		return ticket.IssueType, true
	case domain.FieldAssignedToID:
		if ticket.AssignedToID == nil {
			return nil, true
		}
		return *ticket.AssignedToID, true
	case domain.FieldCustomerID:
		if ticket.CustomerID == nil {
			return nil, true
		}
		return *ticket.CustomerID, true
	case domain.FieldSLABreached:
		return ticket.SLABreached, true
	case domain.FieldTitle:
		return ticket.Title, true
	case domain.FieldDescription:
		return ticket.Description, true
	default:
		return nil, false
	}
}

// valuesEqual is type-sensitive equality with one normalization: all numeric
// types compare as float64, since JSON-decoded rule values arrive that way.
func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
