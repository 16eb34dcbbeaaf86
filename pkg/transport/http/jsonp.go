package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rhuss/xsr/pkg/transport"
)

// ErrMissingCallback means the request named no callback.
var ErrMissingCallback = errors.New("missing callback parameter")

// PayloadFunc computes the payload passed to the callback.
type PayloadFunc func(r *http.Request) (any, error)

// CallbackID reads and validates the callback id from the query
// parameter param.
func CallbackID(r *http.Request, param string) (string, error) {
	id := r.URL.Query().Get(param)
	if id == "" {
		return "", fmt.Errorf("%w %q", ErrMissingCallback, param)
	}
	if !transport.ValidCallbackName(id) {
		return "", fmt.Errorf("%w: %q", transport.ErrInvalidCallbackName, id)
	}
	return id, nil
}

// WriteCall answers with a script invoking name with payload.
func WriteCall(w http.ResponseWriter, name string, payload any) error {
	script, err := transport.EncodeCall(name, payload)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	_, err = w.Write([]byte(script))
	return err
}

// Endpoint adapts fn into a handler answering with a callback script.
// A missing or invalid callback name is a 400; an error from fn is a 500
// and no callback is invoked, so the client runs into its timeout.
func Endpoint(param string, fn PayloadFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := CallbackID(r, param)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload, err := fn(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := WriteCall(w, id, payload); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
