package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken      = errors.New("missing bearer token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUnauthorizedParty = errors.New("unauthorized party")
)

// Identity is what a verified session token says about the caller.
type Identity struct {
	Subject         string
	SessionID       string
	AuthorizedParty string
}

type VerifierConfig struct {
	Issuer             string
	AuthorizedParties  []string
	PreviewPartyRegexp *regexp.Regexp
	HTTPClient         *http.Client
}

// Verifier checks Clerk session tokens: RS256 signatures against the issuer's
// JWKS, the iss claim, expiry, and the azp claim against the allowed parties.
type Verifier struct {
	issuer  string
	parties map[string]bool
	preview *regexp.Regexp
	keys    *keySet
	parser  *jwt.Parser
}

type sessionClaims struct {
	jwt.RegisteredClaims
	AuthorizedParty string `json:"azp,omitempty"`
	SessionID       string `json:"sid,omitempty"`
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	issuer := strings.TrimRight(strings.TrimSpace(cfg.Issuer), "/")
	if issuer == "" {
		return nil, errors.New("clerk issuer is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	parties := make(map[string]bool, len(cfg.AuthorizedParties))
	for _, p := range cfg.AuthorizedParties {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			parties[p] = true
		}
	}
	return &Verifier{
		issuer:  issuer,
		parties: parties,
		preview: cfg.PreviewPartyRegexp,
		keys:    newKeySet(client, issuer+"/.well-known/jwks.json"),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &sessionClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("missing kid")
		}
		return v.keys.get(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	if claims.AuthorizedParty != "" && !v.partyAllowed(claims.AuthorizedParty) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedParty, claims.AuthorizedParty)
	}

	return &Identity{
		Subject:         claims.Subject,
		SessionID:       claims.SessionID,
		AuthorizedParty: claims.AuthorizedParty,
	}, nil
}

// partyAllowed accepts configured origins and preview deployments matching
// the configured pattern. With no parties configured every azp is accepted.
func (v *Verifier) partyAllowed(azp string) bool {
	azp = strings.TrimRight(azp, "/")
	if len(v.parties) == 0 && v.preview == nil {
		return true
	}
	if v.parties[azp] {
		return true
	}
	return v.preview != nil && v.preview.MatchString(azp)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
