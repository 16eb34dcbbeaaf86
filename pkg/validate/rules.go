package validate

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Rule reports whether value satisfies the rule for args.
type Rule func(value string, args []string, f Field) bool

// RuleRef is one parsed annotation.
type RuleRef struct {
	Name string
	Args []string
}

var ruleRe = regexp.MustCompile(`^([^()]*)\(?([^()]*)\)?`)

// ParseRules parses a space separated list of name(arg,...) annotations.
// Empty arguments are dropped. A repeated name keeps its first position
// and takes the later arguments.
func ParseRules(s string) []RuleRef {
	var refs []RuleRef
	index := make(map[string]int)
	for _, tok := range strings.Fields(s) {
		m := ruleRe.FindStringSubmatch(tok)
		if m == nil || m[1] == "" {
			continue
		}
		ref := RuleRef{Name: m[1]}
		for _, a := range strings.Split(m[2], ",") {
			if a = strings.TrimSpace(a); a != "" {
				ref.Args = append(ref.Args, a)
			}
		}
		if i, ok := index[ref.Name]; ok {
			refs[i] = ref
			continue
		}
		index[ref.Name] = len(refs)
		refs = append(refs, ref)
	}
	return refs
}

// Has reports whether refs contains name.
func Has(refs []RuleRef, name string) bool {
	for _, r := range refs {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Format replaces {0}, {1}, ... in tmpl with args. Placeholders without
// an argument are left as they are.
func Format(tmpl string, args []string) string {
	if len(args) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}
	pairs := make([]string, 0, 2*len(args))
	for i, a := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", a)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func intArg(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	return n, err == nil
}

// MinLength requires at least args[0] characters.
func MinLength(value string, args []string, _ Field) bool {
	n, ok := intArg(args)
	return ok && utf8.RuneCountInString(value) >= n
}

// MaxLength allows at most args[0] characters.
func MaxLength(value string, args []string, _ Field) bool {
	n, ok := intArg(args)
	return ok && utf8.RuneCountInString(value) <= n
}

// Numeric requires a decimal number.
func Numeric(value string, _ []string, _ Field) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return err == nil
}

// Email requires a bare address such as user@example.com.
func Email(value string, _ []string, _ Field) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Name == "" && addr.Address == strings.TrimSpace(value) &&
		strings.Contains(addr.Address[strings.LastIndexByte(addr.Address, '@')+1:], ".")
}

// DefaultMessages are the messages for the built-in rules.
func DefaultMessages() map[string]string {
	return map[string]string{
		"required":  "This field is required.",
		"minLength": "Please enter at least {0} characters.",
		"maxLength": "Please enter no more than {0} characters.",
		"numeric":   "Please enter a number.",
		"email":     "Please enter a valid email address.",
		"matches":   "Please enter the same value as {0}.",
	}
}
