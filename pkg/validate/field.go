package validate

import "strings"

// Field types, as reported by Field.Type.
const (
	TypeText           = "text"
	TypePassword       = "password"
	TypeFile           = "file"
	TypeTextarea       = "textarea"
	TypeSelectOne      = "select-one"
	TypeSelectMultiple = "select-multiple"
	TypeRadio          = "radio"
	TypeCheckbox       = "checkbox"
)

// Field is a form control.
type Field interface {
	Name() string
	Type() string
	// Value is the text of the control, or the selected value.
	Value() string
	// Values lists the selected values of a multi-select control.
	Values() []string
	Checked() bool
	// Classes is the space separated rule annotation.
	Classes() string
}

// Input is a plain Field.
type Input struct {
	FieldName string
	Kind      string
	Text      string
	Selected  []string
	On        bool
	Class     string
}

func (in *Input) Name() string     { return in.FieldName }
func (in *Input) Value() string    { return in.Text }
func (in *Input) Values() []string { return in.Selected }
func (in *Input) Checked() bool    { return in.On }
func (in *Input) Classes() string  { return in.Class }

// Type defaults to text.
func (in *Input) Type() string {
	if in.Kind == "" {
		return TypeText
	}
	return in.Kind
}

// textual reports whether rules apply to fields of type t.
func textual(t string) bool {
	switch t {
	case TypeText, TypePassword, TypeFile, TypeTextarea, TypeSelectOne:
		return true
	}
	return false
}

// IsEmpty reports whether f holds no input, judged by its type.
func IsEmpty(f Field) bool {
	switch f.Type() {
	case TypeText, TypePassword, TypeFile, TypeTextarea, TypeSelectOne:
		return strings.TrimSpace(f.Value()) == ""
	case TypeSelectMultiple:
		return len(f.Values()) == 0
	case TypeRadio, TypeCheckbox:
		return !f.Checked()
	}
	return false
}
