package server

import (
	"errors"
	"net/http"
)

// ErrForbidden is returned by an Authorizer to deny a request.
var ErrForbidden = errors.New("forbidden")

// Authorizer decides whether a request may act on a community.
// Authentication happens outside this service; implementations inspect
// whatever the fronting proxy attached to the request.
type Authorizer interface {
	Authorize(r *http.Request, communityID string) error
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(r *http.Request, communityID string) error

// Authorize calls f.
func (f AuthorizerFunc) Authorize(r *http.Request, communityID string) error {
	return f(r, communityID)
}

// AllowAll permits every request.
var AllowAll Authorizer = AuthorizerFunc(func(*http.Request, string) error { return nil })
