package nodetype

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors line up with form keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := jsonName(fld)
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		return field.Interface().(Port).Text
	}, Port{})
	return v
}

// Validate checks candidate data for a node of the given kind. The data is
// decoded into the kind's variant and checked against its schema, then the
// coarse required-field gate runs over the raw candidate. Unregistered kinds
// are checked against the fallback schema, which requires only a name.
//
// On failure Validate returns a *errors.ValidationError naming every
// offending field once, in schema order.
func (r *Registry) Validate(kind Kind, candidate Fields) error {
	spec := r.Spec(kind)
	d := Decode(spec.Kind, candidate)

	var report fieldReport
	for _, key := range Mistyped(d) {
		report.add(key, "type", "has an invalid value")
	}

	if err := r.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate %s: %w", kind, err)
		}
		for _, fe := range verrs {
			report.add(fe.Field(), fe.Tag(), message(fe))
		}
	}

	for _, name := range spec.Required {
		if !truthy(candidate[name]) {
			report.add(name, "required", "is required")
		}
	}

	if len(report.fields) == 0 {
		return nil
	}
	report.sort(d)
	return &ferrors.ValidationError{Kind: string(kind), Fields: report.fields}
}

// ValidateData is Validate for data that is already decoded.
func (r *Registry) ValidateData(kind Kind, d Data) error {
	return r.Validate(kind, d.Fields())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must be numeric"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match the format %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

type fieldReport struct {
	fields []ferrors.FieldError
	seen   map[string]bool
}

func (r *fieldReport) add(field, rule, msg string) {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	if r.seen[field] {
		return
	}
	r.seen[field] = true
	r.fields = append(r.fields, ferrors.FieldError{Field: field, Rule: rule, Message: msg})
}

// sort orders the report by the variant's field declaration order.
func (r *fieldReport) sort(d Data) {
	t := reflect.TypeOf(d).Elem()
	rank := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		rank[jsonName(t.Field(i))] = i
	}
	pos := func(name string) int {
		if i, ok := rank[name]; ok {
			return i
		}
		return len(rank)
	}
	slices.SortStableFunc(r.fields, func(a, b ferrors.FieldError) int {
		return pos(a.Field) - pos(b.Field)
	})
}
