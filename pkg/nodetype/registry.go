package nodetype

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Spec describes one registered node kind.
type Spec struct {
	Kind        Kind
	Title       string
	Description string

	// Handles lists the named source handles of the kind. Empty means a
	// single unnamed output.
	Handles []string

	// Required lists the fields the submit gate insists on, in schema order.
	// It is derived from the variant's validation schema.
	Required []string

	// New returns fresh default data for a node of this kind.
	New func() Data
}

// Registry maps node kinds to their specs and validates submitted data.
// The zero value is not usable; use NewRegistry.
type Registry struct {
	specs    map[Kind]Spec
	fallback Spec
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used by default-data factories that stamp times.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry holding the seven built-in kinds and the
// generic fallback.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		specs:    make(map[Kind]Spec, len(registered)),
		validate: newValidator(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.add(Spec{
		Kind:        KindTask,
		Title:       "Task",
		Description: "A task to be completed by an assignee",
		New: func() Data {
			return &Task{Name: "New Task", Status: StatusPending}
		},
	})
	r.add(Spec{
		Kind:        KindCondition,
		Title:       "Condition",
		Description: "A conditional branch in the workflow",
		Handles:     []string{"true", "false"},
		New: func() Data {
			return &Condition{Name: "New Condition"}
		},
	})
	r.add(Spec{
		Kind:        KindNotification,
		Title:       "Notification",
		Description: "Send a notification to recipients",
		New: func() Data {
			return &Notification{Name: "New Notification", Channel: "email"}
		},
	})
	r.add(Spec{
		Kind:        KindCalendar,
		Title:       "Calendar Event",
		Description: "Schedule events and appointments",
		New: func() Data {
			return &Calendar{Name: "New Event"}
		},
	})
	r.add(Spec{
		Kind:        KindDocument,
		Title:       "Document",
		Description: "Generate or process documents",
		New: func() Data {
			return &Document{
				Name:         "New Document",
				LastModified: r.now().UTC().Format(time.RFC3339),
			}
		},
	})
	r.add(Spec{
		Kind:        KindDatabase,
		Title:       "Database",
		Description: "Query or update database records",
		New: func() Data {
			return &Database{Name: "New Database", Port: NumericPort(5432)}
		},
	})
	r.add(Spec{
		Kind:        KindEmail,
		Title:       "Email",
		Description: "Send emails to recipients",
		New: func() Data {
			return &Email{Name: "New Email"}
		},
	})

	r.fallback = Spec{
		Kind:        KindDefault,
		Title:       "Node",
		Description: "Generic node",
		Required:    requiredFields(&Generic{}),
		New: func() Data {
			return &Generic{Name: "New Node"}
		},
	}
	return r
}

func (r *Registry) add(s Spec) {
	s.Required = requiredFields(Empty(s.Kind))
	r.specs[s.Kind] = s
}

// Lookup returns the spec registered for kind.
func (r *Registry) Lookup(kind Kind) (Spec, bool) {
	s, ok := r.specs[kind]
	return s, ok
}

// Spec returns the spec for kind, or the fallback spec for unregistered kinds.
func (r *Registry) Spec(kind Kind) Spec {
	if s, ok := r.specs[kind]; ok {
		return s
	}
	return r.fallback
}

// Specs returns the registered specs in menu order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(registered))
	for _, k := range registered {
		out = append(out, r.specs[k])
	}
	return out
}

// Defaults returns fresh default data for kind. Each call returns a new
// value, so callers may modify it freely.
func (r *Registry) Defaults(kind Kind) Data {
	return r.Spec(kind).New()
}

// requiredFields derives the required-field list from the struct tags of a
// variant, keyed by JSON name.
func requiredFields(d Data) []string {
	t := reflect.TypeOf(d).Elem()
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		rules := strings.Split(f.Tag.Get("validate"), ",")
		for _, rule := range rules {
			if rule == "required" {
				out = append(out, jsonName(f))
				break
			}
		}
	}
	return out
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" {
		return f.Name
	}
	return name
}
