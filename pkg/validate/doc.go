// Package validate checks form fields against named rules before a
// request is sent.
//
// Each field carries a space separated annotation such as
// "required minLength(3) matches(password)". The required class makes
// an empty field invalid. Every other annotation names a Rule, called with
// the field value and the parenthesized arguments. A failed rule adds its
// message, with {0}, {1}, ... replaced by the arguments.
//
// Validation reports through three notifications: valid field, invalid
// field (with its messages) and invalid form (with every invalid field).
package validate
