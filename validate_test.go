package xlbind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conflicted struct {
	A string   `xl:"Col,index=1"`
	B string   `xl:",index=1"`
	C string   `xl:"Dup"`
	D string   `xl:"Dup"`
	E float64  `xl:",format=0.0,numfmt=2"`
	F []string `xl:"List"`
	G string   `xl:"Gone,ignore"`
	H string   `xl:",resolver=nope"`
	I string   `xl:",resolver='expr:header =='"`
}

func issuesByField(issues []ValidationIssue) map[string][]ValidationIssue {
	out := make(map[string][]ValidationIssue)
	for _, is := range issues {
		key := is.Field
		if is.Ref.Sheet != "" {
			key = is.Ref.String()
		}
		out[key] = append(out[key], is)
	}
	return out
}

func TestValidate_Bindings(t *testing.T) {
	s, _ := newTestSession(t, NewMemGrid("Sheet1"))
	issues, err := Validate[conflicted](s, "")
	require.NoError(t, err)

	got := issuesByField(issues)
	tests := []struct {
		field    string
		severity Severity
		msg      string
	}{
		{"conflicted.A", SeverityWarning, `index 1 takes precedence over column name "Col"`},
		{"conflicted.B", SeverityError, "column index 1 is already bound to conflicted.A"},
		{"conflicted.D", SeverityWarning, `column name "Dup" is already bound to conflicted.C`},
		{"conflicted.E", SeverityWarning, `custom format "0.0" takes precedence over built-in format 2`},
		{"conflicted.F", SeverityError, "cannot hold a cell value"},
		{"conflicted.G", SeverityWarning, "ignored but declares a column binding"},
		{"conflicted.H", SeverityError, `unknown resolver "nope"`},
		{"conflicted.I", SeverityError, "compile expression"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			require.Len(t, got[tt.field], 1)
			assert.Equal(t, tt.severity, got[tt.field][0].Severity)
			assert.Contains(t, got[tt.field][0].Message, tt.msg)
		})
	}
	assert.Empty(t, got["conflicted.C"])
	assert.Len(t, issues, len(tests))
}

func TestValidate_CleanBindings(t *testing.T) {
	g := memSheet(t, "Orders", orderRows()...)
	s, _ := newTestSession(t, g, WithRegistry(newRegistry(t)))

	issues, err := Validate[Order](s, "Orders")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidate_Sheet(t *testing.T) {
	g := memSheet(t, "Orders",
		[]any{"Order ID", "Customer", "Amount", "Paid", "Placed", "Remarks"},
		[]any{1, "Acme", 3, true, march15, "late"},
	)
	s, _ := newTestSession(t, g, WithRegistry(newRegistry(t)))

	issues, err := Validate[Order](s, "Orders")
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, `[WARN] Orders!F1: header "Remarks" binds no field`, issues[0].String())
	assert.Equal(t, "Order.Status", issues[1].Field)
	assert.Equal(t, `[WARN] Order.Status: no column of sheet "Orders" binds this field`, issues[1].String())
}

func TestValidate_Errors(t *testing.T) {
	_, err := Validate[Order](nil, "")
	assert.Error(t, err)

	s, _ := newTestSession(t, NewMemGrid("Sheet1"))
	_, err = Validate[Order](s, "Missing")
	assert.ErrorContains(t, err, `sheet "Missing" not found`)

	_, err = Validate[int](s, "")
	assert.ErrorContains(t, err, "not a struct")
}

func TestValidationIssue_String(t *testing.T) {
	is := ValidationIssue{Severity: SeverityError, Field: "Order.ID", Message: "boom"}
	assert.Equal(t, "[ERROR] Order.ID: boom", is.String())
}
