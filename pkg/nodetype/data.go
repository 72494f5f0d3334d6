package nodetype

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Data is the type-specific payload of a node. It is a closed sum type:
// exactly one variant exists per kind, chosen by the node's type tag.
//
// Every variant keeps the keys it does not recognize, or that do not fit
// the field type, in its Extra map. A decoded variant also remembers which
// of its own keys it was given, and Fields returns only those plus Extra,
// so data read from an import document survives an export unchanged. A
// variant built as a Go literal holds all of its keys.
type Data interface {
	// Kind returns the tag this variant belongs to.
	Kind() Kind
	// Fields encodes the variant back into its open form.
	Fields() Fields
	// Label returns the node's display name.
	Label() string

	bindings() map[string]any
	extra() *Fields
	keys() *keySet
}

// keySet records the bound keys a decoded variant holds.
type keySet map[string]struct{}

// Task is the data of a "task" node.
type Task struct {
	Name        string `json:"name" validate:"required"`
	Assignee    string `json:"assignee" validate:"required"`
	DueDate     string `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"required,oneof=pending inProgress completed cancelled"`

	Extra Fields `json:"-"`
	held  keySet
}

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "inProgress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Condition is the data of a "condition" node. Its outgoing edges leave
// through the "true" and "false" handles.
type Condition struct {
	Name        string `json:"name" validate:"required"`
	Condition   string `json:"condition" validate:"required"`
	Description string `json:"description"`

	Extra Fields `json:"-"`
	held  keySet
}

// Notification is the data of a "notification" node.
type Notification struct {
	Name       string `json:"name" validate:"required"`
	Recipients string `json:"recipients" validate:"required"`
	Message    string `json:"message" validate:"required"`
	Channel    string `json:"channel" validate:"required,oneof=email sms push slack"`

	Extra Fields `json:"-"`
	held  keySet
}

// Calendar is the data of a "calendar" node.
type Calendar struct {
	Name        string `json:"name" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
	Location    string `json:"location"`
	Description string `json:"description"`

	Extra Fields `json:"-"`
	held  keySet
}

// Document is the data of a "document" node.
type Document struct {
	Name         string `json:"name" validate:"required"`
	Content      string `json:"content" validate:"required"`
	Author       string `json:"author"`
	LastModified string `json:"lastModified"`

	Extra Fields `json:"-"`
	held  keySet
}

// Database is the data of a "database" node.
type Database struct {
	Name     string `json:"name" validate:"required"`
	Host     string `json:"host"`
	Port     Port   `json:"port" validate:"omitempty,numeric"`
	Username string `json:"username"`
	Password string `json:"password"`
	Query    string `json:"query" validate:"required"`

	Extra Fields `json:"-"`
	held  keySet
}

// Email is the data of an "email" node.
type Email struct {
	Name    string `json:"name" validate:"required"`
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
	Sent    bool   `json:"sent"`

	Extra Fields `json:"-"`
	held  keySet
}

// Generic is the data of fallback nodes: anything with an unregistered or
// missing type. Only the name is known.
type Generic struct {
	Name string `json:"name" validate:"required"`

	Extra Fields `json:"-"`
	held  keySet
}

func (d *Task) Kind() Kind         { return KindTask }
func (d *Condition) Kind() Kind    { return KindCondition }
func (d *Notification) Kind() Kind { return KindNotification }
func (d *Calendar) Kind() Kind     { return KindCalendar }
func (d *Document) Kind() Kind     { return KindDocument }
func (d *Database) Kind() Kind     { return KindDatabase }
func (d *Email) Kind() Kind        { return KindEmail }
func (d *Generic) Kind() Kind      { return KindDefault }

func (d *Task) Label() string         { return d.Name }
func (d *Condition) Label() string    { return d.Name }
func (d *Notification) Label() string { return d.Name }
func (d *Calendar) Label() string     { return d.Name }
func (d *Document) Label() string     { return d.Name }
func (d *Database) Label() string     { return d.Name }
func (d *Email) Label() string        { return d.Name }
func (d *Generic) Label() string      { return d.Name }

func (d *Task) Fields() Fields         { return encode(d) }
func (d *Condition) Fields() Fields    { return encode(d) }
func (d *Notification) Fields() Fields { return encode(d) }
func (d *Calendar) Fields() Fields     { return encode(d) }
func (d *Document) Fields() Fields     { return encode(d) }
func (d *Database) Fields() Fields     { return encode(d) }
func (d *Email) Fields() Fields        { return encode(d) }
func (d *Generic) Fields() Fields      { return encode(d) }

func (d *Task) extra() *Fields         { return &d.Extra }
func (d *Condition) extra() *Fields    { return &d.Extra }
func (d *Notification) extra() *Fields { return &d.Extra }
func (d *Calendar) extra() *Fields     { return &d.Extra }
func (d *Document) extra() *Fields     { return &d.Extra }
func (d *Database) extra() *Fields     { return &d.Extra }
func (d *Email) extra() *Fields        { return &d.Extra }
func (d *Generic) extra() *Fields      { return &d.Extra }

func (d *Task) keys() *keySet         { return &d.held }
func (d *Condition) keys() *keySet    { return &d.held }
func (d *Notification) keys() *keySet { return &d.held }
func (d *Calendar) keys() *keySet     { return &d.held }
func (d *Document) keys() *keySet     { return &d.held }
func (d *Database) keys() *keySet     { return &d.held }
func (d *Email) keys() *keySet        { return &d.held }
func (d *Generic) keys() *keySet      { return &d.held }

func (d *Task) bindings() map[string]any {
	return map[string]any{
		"name":        &d.Name,
		"assignee":    &d.Assignee,
		"dueDate":     &d.DueDate,
		"description": &d.Description,
		"status":      &d.Status,
	}
}

func (d *Condition) bindings() map[string]any {
	return map[string]any{
		"name":        &d.Name,
		"condition":   &d.Condition,
		"description": &d.Description,
	}
}

func (d *Notification) bindings() map[string]any {
	return map[string]any{
		"name":       &d.Name,
		"recipients": &d.Recipients,
		"message":    &d.Message,
		"channel":    &d.Channel,
	}
}

func (d *Calendar) bindings() map[string]any {
	return map[string]any{
		"name":        &d.Name,
		"date":        &d.Date,
		"time":        &d.Time,
		"location":    &d.Location,
		"description": &d.Description,
	}
}

func (d *Document) bindings() map[string]any {
	return map[string]any{
		"name":         &d.Name,
		"content":      &d.Content,
		"author":       &d.Author,
		"lastModified": &d.LastModified,
	}
}

func (d *Database) bindings() map[string]any {
	return map[string]any{
		"name":     &d.Name,
		"host":     &d.Host,
		"port":     &d.Port,
		"username": &d.Username,
		"password": &d.Password,
		"query":    &d.Query,
	}
}

func (d *Email) bindings() map[string]any {
	return map[string]any{
		"name":    &d.Name,
		"to":      &d.To,
		"subject": &d.Subject,
		"body":    &d.Body,
		"sent":    &d.Sent,
	}
}

func (d *Generic) bindings() map[string]any {
	return map[string]any{"name": &d.Name}
}

// Empty returns the variant for kind holding no keys; its Fields are {}.
// Unknown kinds get a *Generic.
func Empty(kind Kind) Data {
	var d Data
	switch kind {
	case KindTask:
		d = &Task{}
	case KindCondition:
		d = &Condition{}
	case KindNotification:
		d = &Notification{}
	case KindCalendar:
		d = &Calendar{}
	case KindDocument:
		d = &Document{}
	case KindDatabase:
		d = &Database{}
	case KindEmail:
		d = &Email{}
	default:
		d = &Generic{}
	}
	*d.keys() = keySet{}
	return d
}

// Decode builds the variant for kind from its open form. Keys the variant
// does not know, and values that do not fit the field type, are kept in
// Extra. Decode never fails; validation is a separate step.
func Decode(kind Kind, f Fields) Data {
	d := Empty(kind)
	decodeInto(d, f)
	return d
}

// Merge applies patch to d key-wise: supplied keys overwrite, the rest are
// retained. d is not modified; a new variant of the same kind is returned.
func Merge(d Data, patch Fields) Data {
	merged := d.Fields()
	for k, v := range patch {
		merged[k] = cloneValue(v)
	}
	return Decode(d.Kind(), merged)
}

// Clone returns an independent copy of d.
func Clone(d Data) Data {
	if d == nil {
		return nil
	}
	return Decode(d.Kind(), d.Fields())
}

// Equal reports whether a and b have the same kind and the same open form.
func Equal(a, b Data) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	ja, err := json.Marshal(a.Fields())
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b.Fields())
	if err != nil {
		return false
	}
	return string(ja) == string(jb)
}

// Mistyped returns the known keys whose value did not fit the field type.
func Mistyped(d Data) []string {
	var keys []string
	bind := d.bindings()
	for _, k := range d.extra().Keys() {
		if _, ok := bind[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func decodeInto(d Data, f Fields) {
	bind := d.bindings()
	extra := d.extra()
	held := d.keys()
	if *held == nil {
		*held = keySet{}
	}
	for k, v := range f {
		if ptr, ok := bind[k]; ok && assign(ptr, v) {
			(*held)[k] = struct{}{}
			continue
		}
		if *extra == nil {
			*extra = Fields{}
		}
		(*extra)[k] = cloneValue(v)
	}
}

func encode(d Data) Fields {
	bind := d.bindings()
	extra := *d.extra()
	held := *d.keys()
	out := make(Fields, len(bind)+len(extra))
	for k, ptr := range bind {
		if _, shadowed := extra[k]; shadowed {
			continue
		}
		if _, ok := held[k]; held != nil && !ok {
			continue
		}
		v := reflect.ValueOf(ptr).Elem().Interface()
		if w, ok := v.(interface{ wire() any }); ok {
			v = w.wire()
		}
		out[k] = v
	}
	for k, v := range extra {
		out[k] = cloneValue(v)
	}
	return out
}

// Port is a network port kept as text so that a value typed into a form
// can be stored before it is validated. Quoted records that the value
// arrived as a JSON string; such ports are written back as strings, and
// all others as numbers when they parse as one.
type Port struct {
	Text   string
	Quoted bool
}

// NumericPort returns the port n in number form.
func NumericPort(n int) Port {
	return Port{Text: strconv.Itoa(n)}
}

func (p Port) wire() any {
	if !p.Quoted {
		if n, err := strconv.ParseFloat(p.Text, 64); err == nil {
			return n
		}
	}
	return p.Text
}

// MarshalJSON implements json.Marshaler.
func (p Port) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.wire())
}

// UnmarshalJSON implements json.Unmarshaler. It accepts numbers and strings.
func (p *Port) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Port{Text: s, Quoted: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = Port{Text: n.String()}
	return nil
}
