package nodetype

// Kind is the node-type tag carried by every node.
type Kind string

// Registered node kinds, plus the generic fallback used for nodes whose type
// is missing or unknown.
const (
	KindTask         Kind = "task"
	KindCondition    Kind = "condition"
	KindNotification Kind = "notification"
	KindCalendar     Kind = "calendar"
	KindDocument     Kind = "document"
	KindDatabase     Kind = "database"
	KindEmail        Kind = "email"

	// KindDefault is the generic fallback. Imported nodes without a type get it.
	KindDefault Kind = "default"
)

var registered = []Kind{
	KindTask,
	KindCondition,
	KindNotification,
	KindCalendar,
	KindDocument,
	KindDatabase,
	KindEmail,
}

// Kinds returns the registered kinds in menu order. The fallback is not
// included: it cannot be picked when adding a node.
func Kinds() []Kind {
	out := make([]Kind, len(registered))
	copy(out, registered)
	return out
}

// Registered reports whether k is one of the seven registered kinds.
func (k Kind) Registered() bool {
	for _, r := range registered {
		if r == k {
			return true
		}
	}
	return false
}

// Known reports whether k is registered or the fallback itself.
func (k Kind) Known() bool { return k == KindDefault || k.Registered() }

func (k Kind) String() string { return string(k) }
