// Package idp bridges the onboarding flow to an external identity provider.
package idp

import (
	"context"
	"errors"
)

var (
	ErrNotLoggedIn  = errors.New("idp: not logged in")
	ErrStateInvalid = errors.New("idp: invalid state")
)

// Profile is the provider's view of the user.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Provider is the login capability the flow depends on.
type Provider interface {
	Initialize(ctx context.Context) error
	// Login starts a login and returns the URL the user must visit. An
	// empty URL means the provider logged in without a redirect.
	Login(ctx context.Context) (string, error)
	// Complete finishes a redirect login with the callback state and code.
	Complete(ctx context.Context, state, code string) error
	Logout(ctx context.Context) error
	LoggedIn() bool
	GetProfile(ctx context.Context) (Profile, error)
}
