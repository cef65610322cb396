package generates

import (
	"context"
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/guardiao-iam/guardiao/errors"
)

// JWTGenerator signs access and identity tokens from an assembled claim set.
type JWTGenerator struct {
	SignedKeyID  string
	SignedKey    []byte
	SignedMethod jwt.SigningMethod
	Issuer       string
}

// NewJWTGenerator create to generate the jwt token instance
func NewJWTGenerator(kid string, key []byte, method jwt.SigningMethod, issuer string) *JWTGenerator {
	return &JWTGenerator{SignedKeyID: kid, SignedKey: key, SignedMethod: method, Issuer: issuer}
}

// Token signs the access token and, when withIdentity is set, the identity
// token, each carrying only the claims routed to its destination.
func (g *JWTGenerator) Token(ctx context.Context, cs *ClaimSet, scopes []string, accessTTL, identityTTL time.Duration, withIdentity bool) (string, string, error) {
	now := time.Now()

	access, err := g.sign(cs.ForDestination(DestAccessToken), scopes, now, accessTTL)
	if err != nil {
		return "", "", err
	}

	identity := ""
	if withIdentity {
		identity, err = g.sign(cs.ForDestination(DestIdentityToken), nil, now, identityTTL)
		if err != nil {
			return "", "", err
		}
	}
	return access, identity, nil
}

func (g *JWTGenerator) sign(claims map[string]interface{}, scopes []string, now time.Time, ttl time.Duration) (string, error) {
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(now.Add(ttl))
	if g.Issuer != "" {
		mc["iss"] = g.Issuer
	}
	if len(scopes) > 0 {
		// Space-separated per RFC 6749.
		mc["scope"] = strings.Join(scopes, " ")
	}

	token := jwt.NewWithClaims(g.SignedMethod, mc)
	if g.SignedKeyID != "" {
		token.Header["kid"] = g.SignedKeyID
	}
	key, err := g.signingKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

func (g *JWTGenerator) signingKey() (interface{}, error) {
	if g.isEs() {
		return jwt.ParseECPrivateKeyFromPEM(g.SignedKey)
	} else if g.isRsOrPS() {
		return jwt.ParseRSAPrivateKeyFromPEM(g.SignedKey)
	} else if g.isHs() {
		return g.SignedKey, nil
	} else if g.isEd() {
		return jwt.ParseEdPrivateKeyFromPEM(g.SignedKey)
	}
	return nil, errors.New("unsupported sign method")
}

// VerificationKeyFunc returns a jwt.Keyfunc for parsing tokens this generator
// signed. For asymmetric methods the public half is derived from the key.
func (g *JWTGenerator) VerificationKeyFunc() jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != g.SignedMethod.Alg() {
			return nil, errors.ErrInvalidAccessToken
		}
		if g.isHs() {
			return g.SignedKey, nil
		}
		if g.isEs() {
			k, err := jwt.ParseECPrivateKeyFromPEM(g.SignedKey)
			if err != nil {
				return nil, err
			}
			return &k.PublicKey, nil
		}
		if g.isRsOrPS() {
			k, err := jwt.ParseRSAPrivateKeyFromPEM(g.SignedKey)
			if err != nil {
				return nil, err
			}
			return &k.PublicKey, nil
		}
		if g.isEd() {
			k, err := jwt.ParseEdPrivateKeyFromPEM(g.SignedKey)
			if err != nil {
				return nil, err
			}
			if pk, ok := k.(ed25519.PrivateKey); ok {
				return pk.Public(), nil
			}
			return nil, errors.ErrInvalidAccessToken
		}
		return nil, errors.New("unsupported sign method")
	}
}

func (g *JWTGenerator) isEs() bool {
	return strings.HasPrefix(g.SignedMethod.Alg(), "ES")
}

func (g *JWTGenerator) isRsOrPS() bool {
	isRs := strings.HasPrefix(g.SignedMethod.Alg(), "RS")
	isPs := strings.HasPrefix(g.SignedMethod.Alg(), "PS")
	return isRs || isPs
}

func (g *JWTGenerator) isHs() bool { return strings.HasPrefix(g.SignedMethod.Alg(), "HS") }
func (g *JWTGenerator) isEd() bool { return strings.HasPrefix(g.SignedMethod.Alg(), "Ed") }
