package validate

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rhuss/xsr/pkg/debug"
)

const (
	// DefaultRequiredClass marks fields that must not be empty.
	DefaultRequiredClass = "required"
	// DefaultIgnoredClass marks fields Add skips.
	DefaultIgnoredClass = "ignored"
)

type prepared struct {
	field Field
	rules []RuleRef
}

// Validator validates a set of fields. It is safe for concurrent use;
// rules and observers run without the lock held.
type Validator struct {
	mu            sync.Mutex
	rules         map[string]Rule
	messages      map[string]string
	requiredClass string
	ignoredClass  string
	fields        []prepared
	logger        *slog.Logger

	validField   []func(Field)
	invalidField []func(Field, []string)
	invalidForm  []func([]Field)
}

// Option configures a Validator.
type Option func(*Validator)

// WithRules adds or replaces rules.
func WithRules(rules map[string]Rule) Option {
	return func(v *Validator) { maps.Copy(v.rules, rules) }
}

// WithMessages adds or replaces message templates.
func WithMessages(messages map[string]string) Option {
	return func(v *Validator) { maps.Copy(v.messages, messages) }
}

// WithRequiredClass renames the required annotation.
func WithRequiredClass(name string) Option {
	return func(v *Validator) { v.requiredClass = name }
}

// WithIgnoredClass renames the ignored annotation.
func WithIgnoredClass(name string) Option {
	return func(v *Validator) { v.ignoredClass = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New creates a Validator with the built-in rules and messages.
func New(opts ...Option) *Validator {
	v := &Validator{
		messages:      DefaultMessages(),
		requiredClass: DefaultRequiredClass,
		ignoredClass:  DefaultIgnoredClass,
		logger:        slog.Default(),
	}
	v.rules = map[string]Rule{
		"minLength": MinLength,
		"maxLength": MaxLength,
		"numeric":   Numeric,
		"email":     Email,
		"matches":   v.matches,
	}
	for _, opt := range opts {
		opt(v)
	}
	if msg, ok := v.messages[DefaultRequiredClass]; ok && v.requiredClass != DefaultRequiredClass {
		if _, set := v.messages[v.requiredClass]; !set {
			v.messages[v.requiredClass] = msg
		}
	}
	return v
}

// matches requires the value of the field named args[0].
func (v *Validator) matches(value string, args []string, _ Field) bool {
	if len(args) == 0 {
		return false
	}
	other, ok := v.Field(args[0])
	return ok && other.Value() == value
}

// SetRule adds or replaces a rule. An empty msg keeps the current message.
func (v *Validator) SetRule(name string, rule Rule, msg string) *Validator {
	v.mu.Lock()
	defer v.mu.Unlock()
	if rule != nil {
		v.rules[name] = rule
	}
	if msg != "" {
		v.messages[name] = msg
	}
	return v
}

// EraseRule removes a rule and its message.
func (v *Validator) EraseRule(name string) *Validator {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.rules, name)
	delete(v.messages, name)
	return v
}

// SetMessage sets the message template for name.
func (v *Validator) SetMessage(name, msg string) *Validator {
	v.mu.Lock()
	defer v.mu.Unlock()
	if msg != "" {
		v.messages[name] = msg
	}
	return v
}

// Add parses the annotations of fields and includes them. Fields marked
// ignored are skipped and a field replaces an earlier one of the same
// name. It returns the number of fields added.
func (v *Validator) Add(fields ...Field) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, f := range fields {
		rules := ParseRules(f.Classes())
		if Has(rules, v.ignoredClass) {
			debug.Log("validate", "field ignored", "field", f.Name())
			continue
		}
		p := prepared{field: f, rules: rules}
		if i := v.index(f.Name()); i >= 0 {
			v.fields[i] = p
		} else {
			v.fields = append(v.fields, p)
		}
		n++
	}
	return n
}

// Remove drops the named fields.
func (v *Validator) Remove(names ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fields = slices.DeleteFunc(v.fields, func(p prepared) bool {
		return slices.Contains(names, p.field.Name())
	})
}

// Field returns the field named name.
func (v *Validator) Field(name string) (Field, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i := v.index(name); i >= 0 {
		return v.fields[i].field, true
	}
	return nil, false
}

// Fields returns the fields in the order they were added.
func (v *Validator) Fields() []Field {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Field, len(v.fields))
	for i, p := range v.fields {
		out[i] = p.field
	}
	return out
}

func (v *Validator) index(name string) int {
	return slices.IndexFunc(v.fields, func(p prepared) bool { return p.field.Name() == name })
}

// OnValidField registers fn for fields that pass.
func (v *Validator) OnValidField(fn func(Field)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.validField = append(v.validField, fn)
}

// OnInvalidField registers fn for fields that fail, with their messages.
func (v *Validator) OnInvalidField(fn func(Field, []string)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.invalidField = append(v.invalidField, fn)
}

// OnInvalidForm registers fn for a Validate run with invalid fields.
func (v *Validator) OnInvalidForm(fn func([]Field)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.invalidForm = append(v.invalidForm, fn)
}

// ValidateField checks f and emits the valid or invalid field
// notification. The annotation parsed by Add is used when a field of the
// same name was added; otherwise f's own annotation is parsed.
//
// An empty required field fails with the required message alone. Other
// rules run only for textual fields that hold input; annotations naming
// no known rule are skipped.
func (v *Validator) ValidateField(f Field) bool {
	v.mu.Lock()
	var refs []RuleRef
	if i := v.index(f.Name()); i >= 0 {
		refs = v.fields[i].rules
	} else {
		refs = ParseRules(f.Classes())
	}
	required := v.requiredClass
	rules := maps.Clone(v.rules)
	messages := maps.Clone(v.messages)
	onValid := slices.Clone(v.validField)
	onInvalid := slices.Clone(v.invalidField)
	v.mu.Unlock()

	var failed []string
	switch {
	case Has(refs, required) && IsEmpty(f):
		msg, ok := messages[required]
		if !ok {
			msg = required
		}
		failed = append(failed, msg)
	case textual(f.Type()) && !IsEmpty(f):
		for _, ref := range refs {
			rule, ok := rules[ref.Name]
			if !ok {
				continue
			}
			if !rule(f.Value(), ref.Args, f) {
				msg, ok := messages[ref.Name]
				if !ok {
					msg = ref.Name
				}
				failed = append(failed, Format(msg, ref.Args))
			}
		}
	}

	if len(failed) > 0 {
		debug.Log("validate", "field invalid", "field", f.Name(), "messages", failed)
		for _, fn := range onInvalid {
			fn(f, failed)
		}
		return false
	}
	for _, fn := range onValid {
		fn(f)
	}
	return true
}

// Validate checks every field and emits the invalid form notification
// when any of them fails.
func (v *Validator) Validate() bool {
	var invalid []Field
	for _, f := range v.Fields() {
		if !v.ValidateField(f) {
			invalid = append(invalid, f)
		}
	}
	if len(invalid) == 0 {
		return true
	}

	v.mu.Lock()
	onForm := slices.Clone(v.invalidForm)
	v.mu.Unlock()
	v.logger.Info("form invalid", "fields", len(invalid))
	for _, fn := range onForm {
		fn(invalid)
	}
	return false
}

// Submit calls send when every field is valid. It reports whether the
// form was valid and returns the error from send.
func (v *Validator) Submit(send func() error) (bool, error) {
	if !v.Validate() {
		return false, nil
	}
	return true, send()
}

// Data returns the name and value of every field, for use as request
// data. Multi-select values are joined with commas; unchecked radio and
// checkbox fields are left out.
func (v *Validator) Data() map[string]string {
	data := make(map[string]string)
	for _, f := range v.Fields() {
		switch f.Type() {
		case TypeSelectMultiple:
			if vals := f.Values(); len(vals) > 0 {
				data[f.Name()] = strings.Join(vals, ",")
			}
		case TypeRadio, TypeCheckbox:
			if f.Checked() {
				data[f.Name()] = f.Value()
			}
		default:
			data[f.Name()] = f.Value()
		}
	}
	return data
}
