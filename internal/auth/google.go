package auth

import (
	"errors"
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

var (
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
	ErrGoogleToken    = errors.New("invalid google id token")
)

// GoogleIdentity is the verified identity carried by a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// GoogleVerifier verifies Google ID tokens.
type GoogleVerifier interface {
	Verify(idToken string) (*GoogleIdentity, error)
}

type googleVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

// NewGoogleVerifier returns a verifier for tokens issued to clientID. An empty clientID
// disables Google sign-in.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &googleVerifier{clientID: clientID}
}

func (g *googleVerifier) Verify(idToken string) (*GoogleIdentity, error) {
	if g.clientID == "" {
		return nil, ErrGoogleDisabled
	}
	if err := g.verifier.VerifyIDToken(idToken, []string{g.clientID}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleToken, err)
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleToken, err)
	}
	return &GoogleIdentity{
		Subject:       claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
