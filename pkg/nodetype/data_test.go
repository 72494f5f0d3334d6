package nodetype

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDispatchesOnKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want Data
	}{
		{KindTask, &Task{}},
		{KindCondition, &Condition{}},
		{KindNotification, &Notification{}},
		{KindCalendar, &Calendar{}},
		{KindDocument, &Document{}},
		{KindDatabase, &Database{}},
		{KindEmail, &Email{}},
		{KindDefault, &Generic{}},
		{Kind("webhook"), &Generic{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := Decode(tt.kind, Fields{"name": "x"})
			assert.IsType(t, tt.want, got)
			assert.Equal(t, "x", got.Label())
		})
	}
}

func TestDecodeKeepsUnknownAndMistypedKeys(t *testing.T) {
	d := Decode(KindTask, Fields{
		"name":     "Review",
		"status":   "pending",
		"assignee": 42,
		"priority": "high",
	})

	task, ok := d.(*Task)
	require.True(t, ok)
	assert.Equal(t, "Review", task.Name)
	assert.Empty(t, task.Assignee)
	assert.Equal(t, Fields{"assignee": 42, "priority": "high"}, task.Extra)
	assert.Equal(t, []string{"assignee"}, Mistyped(d))

	f := d.Fields()
	assert.Equal(t, 42, f["assignee"])
	assert.Equal(t, "high", f["priority"])
	assert.Equal(t, "Review", f["name"])
}

func TestMergeRetainsUnspecifiedKeys(t *testing.T) {
	d := Decode(KindTask, Fields{"name": "New Task", "status": "pending", "assignee": "ana"})

	merged := Merge(d, Fields{"status": StatusCompleted})

	task := merged.(*Task)
	assert.Equal(t, "New Task", task.Name)
	assert.Equal(t, "ana", task.Assignee)
	assert.Equal(t, StatusCompleted, task.Status)

	// The input is untouched.
	assert.Equal(t, StatusPending, d.(*Task).Status)
}

func TestFieldsHoldOnlySuppliedKeys(t *testing.T) {
	d := Decode(KindTask, Fields{"name": "New Task", "status": "pending"})
	assert.Equal(t, Fields{"name": "New Task", "status": "pending"}, d.Fields())

	merged := Merge(d, Fields{"status": StatusCompleted})
	assert.Equal(t, Fields{"name": "New Task", "status": StatusCompleted}, merged.Fields())

	email := Decode(KindEmail, Fields{"name": "x", "cc": "ops"})
	assert.Equal(t, Fields{"name": "x", "cc": "ops"}, email.Fields())

	assert.Equal(t, Fields{}, Decode(KindCondition, Fields{}).Fields())
	assert.Equal(t, Fields{}, Empty(KindDatabase).Fields())
}

func TestLiteralVariantHoldsAllKeys(t *testing.T) {
	d := &Email{Name: "Hello"}
	assert.Equal(t, Fields{"name": "Hello", "to": "", "subject": "", "body": "", "sent": false}, d.Fields())
	assert.Equal(t, d.Fields(), Clone(d).Fields())
}

func TestPortKeepsWireForm(t *testing.T) {
	text := Decode(KindDatabase, Fields{"name": "db", "port": "5432"})
	assert.Equal(t, "5432", text.Fields()["port"])
	assert.Empty(t, Mistyped(text))

	number := Decode(KindDatabase, Fields{"name": "db", "port": float64(5432)})
	assert.Equal(t, float64(5432), number.Fields()["port"])

	b, err := json.Marshal(text.Fields())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"db","port":"5432"}`, string(b))
}

func TestMergeOverwritesMistypedValue(t *testing.T) {
	d := Decode(KindDatabase, Fields{"name": "db", "port": true})
	require.Equal(t, []string{"port"}, Mistyped(d))

	merged := Merge(d, Fields{"port": 5433})
	db := merged.(*Database)
	assert.Equal(t, NumericPort(5433), db.Port)
	assert.Empty(t, Mistyped(merged))
}

func TestPortJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		port Port
		out  string
	}{
		{"number", `5432`, Port{Text: "5432"}, `5432`},
		{"numeric string", `"3306"`, Port{Text: "3306", Quoted: true}, `"3306"`},
		{"text", `"abc"`, Port{Text: "abc", Quoted: true}, `"abc"`},
		{"empty", `""`, Port{Quoted: true}, `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Port
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.port, p)

			b, err := json.Marshal(p)
			require.NoError(t, err)
			assert.JSONEq(t, tt.out, string(b))
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Decode(KindDocument, Fields{
		"name": "Spec",
		"tags": []any{"a", "b"},
	})
	cp := Clone(orig)
	require.True(t, Equal(orig, cp))

	cp.(*Document).Name = "Changed"
	cp.(*Document).Extra["tags"].([]any)[0] = "z"

	assert.Equal(t, "Spec", orig.Label())
	assert.Equal(t, "a", orig.(*Document).Extra["tags"].([]any)[0])
	assert.False(t, Equal(orig, cp))
}

func TestEqual(t *testing.T) {
	a := Decode(KindEmail, Fields{"name": "n", "to": "a@b.co"})
	b := Decode(KindEmail, Fields{"name": "n", "to": "a@b.co"})
	c := Decode(KindDefault, Fields{"name": "n"})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(a, nil))
}

func TestFieldsString(t *testing.T) {
	f := Fields{"s": "text", "n": 5432.0, "b": true, "o": map[string]any{"k": 1}}

	assert.Equal(t, "text", f.String("s"))
	assert.Equal(t, "5432", f.String("n"))
	assert.Equal(t, "true", f.String("b"))
	assert.Equal(t, `{"k":1}`, f.String("o"))
	assert.Equal(t, "", f.String("missing"))
}
