package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/ticketflow/internal/domain"
)

func sampleTicket() *domain.Ticket {
	assignee := "staff-1"
	return &domain.Ticket{
		ID:           "ticket-1",
		Title:        "printer on fire",
		Description:  "the office printer is literally on fire",
		Status:       domain.TicketStatusOpen,
		Priority:     domain.TicketPriorityHigh,
		IssueType:    "hardware",
		AssignedToID: &assignee,
	}
}

func TestEvaluateEmptyConditionsMatches(t *testing.T) {
	matched, err := Evaluator{}.Evaluate(nil, sampleTicket())
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEvaluateEquality(t *testing.T) {
	cases := []struct {
		name string
		cond domain.AutomationCondition
		want bool
	}{
		{"eq match", domain.AutomationCondition{Field: domain.FieldPriority, Op: domain.OpEq, Value: "HIGH"}, true},
		{"eq mismatch", domain.AutomationCondition{Field: domain.FieldPriority, Op: domain.OpEq, Value: "LOW"}, false},
		{"eq wrong type", domain.AutomationCondition{Field: domain.FieldPriority, Op: domain.OpEq, Value: 3}, false},
		{"neq", domain.AutomationCondition{Field: domain.FieldStatus, Op: domain.OpNeq, Value: "CLOSED"}, true},
		{"contains", domain.AutomationCondition{Field: domain.FieldTitle, Op: domain.OpContains, Value: "fire"}, true},
		{"contains mismatch", domain.AutomationCondition{Field: domain.FieldTitle, Op: domain.OpContains, Value: "water"}, false},
		{"in match", domain.AutomationCondition{Field: domain.FieldIssueType, Op: domain.OpIn, Value: []any{"software", "hardware"}}, true},
		{"in mismatch", domain.AutomationCondition{Field: domain.FieldIssueType, Op: domain.OpIn, Value: []any{"billing"}}, false},
		{"bool field", domain.AutomationCondition{Field: domain.FieldSLABreached, Op: domain.OpEq, Value: false}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matched, err := Evaluator{}.Evaluate([]domain.AutomationCondition{tc.cond}, sampleTicket())
			require.NoError(t, err)
			assert.Equal(t, tc.want, matched)
		})
	}
}

func TestEvaluateShortCircuits(t *testing.T) {
	// Second condition would error in strict mode; the first one already
	// failed, so evaluation never reaches it.
	conditions := []domain.AutomationCondition{
		{Field: domain.FieldPriority, Op: domain.OpEq, Value: "URGENT"},
		{Field: domain.FieldTitle, Op: domain.OpContains, Value: 42},
	}
	matched, err := Evaluator{Strict: true}.Evaluate(conditions, sampleTicket())
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateTypeMismatchPermissiveVsStrict(t *testing.T) {
	conditions := []domain.AutomationCondition{
		{Field: domain.FieldPriority, Op: domain.OpGt, Value: 10},
	}

	matched, err := Evaluator{}.Evaluate(conditions, sampleTicket())
	require.NoError(t, err)
	assert.False(t, matched, "ordering on a string field evaluates false, not error")

	_, err = Evaluator{Strict: true}.Evaluate(conditions, sampleTicket())
	assert.Error(t, err)
}

func TestEvaluateInRequiresArray(t *testing.T) {
	conditions := []domain.AutomationCondition{
		{Field: domain.FieldPriority, Op: domain.OpIn, Value: "HIGH"},
	}
	matched, err := Evaluator{}.Evaluate(conditions, sampleTicket())
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateNilFieldValue(t *testing.T) {
	ticket := sampleTicket()
	ticket.AssignedToID = nil

	matched, err := Evaluator{}.Evaluate([]domain.AutomationCondition{
		{Field: domain.FieldAssignedToID, Op: domain.OpEq, Value: nil},
	}, ticket)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = Evaluator{}.Evaluate([]domain.AutomationCondition{
		{Field: domain.FieldAssignedToID, Op: domain.OpNeq, Value: "staff-1"},
	}, ticket)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = Evaluator{}.Evaluate([]domain.AutomationCondition{
		{Field: domain.FieldAssignedToID, Op: domain.OpContains, Value: "staff"},
	}, ticket)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateNumericNormalization(t *testing.T) {
	// JSON decoding produces float64; int-typed comparisons still line up.
	assert.True(t, valuesEqual(3, float64(3)))
	assert.True(t, valuesEqual(float64(2.5), float32(2.5)))
	assert.False(t, valuesEqual("3", float64(3)))
}

func TestEvaluateUnknownField(t *testing.T) {
	conditions := []domain.AutomationCondition{
		{Field: "createdAt", Op: domain.OpEq, Value: "x"},
	}
	matched, err := Evaluator{}.Evaluate(conditions, sampleTicket())
	require.NoError(t, err)
	assert.False(t, matched)

	_, err = Evaluator{Strict: true}.Evaluate(conditions, sampleTicket())
	assert.Error(t, err)
}
