package identity

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tempotrack/tempo/internal/models"
)

// TokenVerifier defines what the resolver needs from the user store
type TokenVerifier interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// Resolver maps bearer credentials to stable user identities. It is a thin
// wrapper over the store lookup; there is deliberately no development bypass.
type Resolver struct {
	verifier TokenVerifier
}

// NewResolver creates a store-backed identity resolver
func NewResolver(verifier TokenVerifier) *Resolver {
	return &Resolver{verifier: verifier}
}

// Resolve validates the credential and returns the owning user
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	user, err := r.verifier.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("user_id", user.ID.String()).Msg("credential resolved")
	return user, nil
}
