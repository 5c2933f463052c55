// Package auth resolves request credentials to an owner identity.
//
// Credential issuance and password storage live outside this service; the
// core only consumes the resolved owner id. StaticTokens is the stand-in
// collaborator backed by configuration.
package auth

import (
	"context"

	"github.com/shandysiswandi/gostream/internal/pkg/pkgerror"
)

type StaticTokens struct {
	tokens map[string]string
}

// NewStaticTokens builds an authenticator from a token -> owner id map.
func NewStaticTokens(tokens map[string]string) *StaticTokens {
	if tokens == nil {
		tokens = map[string]string{}
	}

	return &StaticTokens{tokens: tokens}
}

func (a *StaticTokens) Authenticate(ctx context.Context, token string) (string, error) {
	owner, ok := a.tokens[token]
	if !ok || owner == "" {
		return "", pkgerror.NewBusiness("invalid credentials", pkgerror.CodeUnauthorized)
	}

	return owner, nil
}
