package errors

import (
	"fmt"
	"strings"
	"unicode"
)

// FieldError reports one rejected field of a node's data.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (f FieldError) Error() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationError is returned when a config submit is rejected.
// Fields holds one entry per offending field, in schema order.
type ValidationError struct {
	Kind   string       `json:"type"`
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s: %s node: %s", ErrCodeValidation, e.Kind, strings.Join(msgs, "; "))
}

// Field returns the error recorded for name, if any.
func (e *ValidationError) Field(name string) (FieldError, bool) {
	for _, f := range e.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldError{}, false
}

// FieldNames returns the names of all offending fields.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}

// Summary renders the message shown to the user on submit.
func (e *ValidationError) Summary() string {
	return "Please fill in the required fields: " + strings.Join(e.FieldNames(), ", ")
}

// ValidateID validates a node or edge identifier supplied by a caller.
// Identifiers must be non-empty, at most 256 characters, and free of
// control characters.
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "id cannot be empty")
	}
	if len(id) > 256 {
		return New(ErrCodeInvalidID, "id too long (max 256 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "id contains invalid control characters")
		}
	}
	return nil
}

// ValidateWorkspaceName validates a workspace name before it is used as a
// file name. It must be a simple basename without path components.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 128 characters
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - No hidden files (leading dot)
func ValidateWorkspaceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPath, "workspace name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidPath, "workspace name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "workspace name contains invalid characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidPath, "workspace name cannot contain path separators")
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidPath, "workspace name cannot contain path traversal sequences (..)")
	}

	if strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPath, "workspace name cannot be a hidden file")
	}

	return nil
}
