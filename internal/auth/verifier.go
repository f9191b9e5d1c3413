package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwks"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/rs/zerolog"
)

// Verifier validates a bearer token and returns a normalized identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type clerkVerifier struct {
	jwksClient *jwks.Client
	logger     zerolog.Logger
}

// sessionClaims carries the loosely-shaped identity fields Clerk templates
// may place in the token. Email can arrive under several names depending on
// how the JWT template was configured.
type sessionClaims struct {
	Email               string `json:"email"`
	EmailAddress        string `json:"emailAddress"`
	PrimaryEmailAddress struct {
		EmailAddress string `json:"emailAddress"`
	} `json:"primaryEmailAddress"`
	Username string `json:"username"`
}

// NewClerkVerifier constructs a verifier backed by Clerk's JWKS endpoint.
func NewClerkVerifier(secretKey string, logger zerolog.Logger) (Verifier, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("clerk secret key must be provided")
	}

	config := &clerk.ClientConfig{
		BackendConfig: clerk.BackendConfig{
			Key: clerk.String(secretKey),
		},
	}

	return &clerkVerifier{
		jwksClient: jwks.NewClient(config),
		logger:     logger.With().Str("component", "clerk_verifier").Logger(),
	}, nil
}

func (v *clerkVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{
		Token:                   token,
		JWKSClient:              v.jwksClient,
		CustomClaimsConstructor: newSessionClaims,
	})
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	custom, _ := claims.Custom.(*sessionClaims)
	return identityFromClaims(claims.Subject, custom), nil
}

func newSessionClaims(_ context.Context) any {
	return &sessionClaims{}
}

func identityFromClaims(subject string, custom *sessionClaims) *Identity {
	identity := &Identity{Subject: subject}
	if custom != nil {
		identity.Email = normalizeEmail(*custom)
		identity.Username = strings.TrimSpace(custom.Username)
	}
	return identity
}

func normalizeEmail(claims sessionClaims) string {
	for _, candidate := range []string{
		claims.EmailAddress,
		claims.Email,
		claims.PrimaryEmailAddress.EmailAddress,
	} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return strings.ToLower(trimmed)
		}
	}
	return ""
}
