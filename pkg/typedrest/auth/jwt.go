package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pavelpascari/typedrest/pkg/typedrest"
)

var (
	ErrTokenInvalid     = errors.New("authentication token invalid")
	ErrTokenExpired     = errors.New("authentication token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// User is the principal produced by the JWT authenticator.
type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// TokenPair is an issued access and refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// JWTConfig holds JWT authenticator configuration.
type JWTConfig struct {
	Secret          []byte
	PrivateKey      *rsa.PrivateKey
	PublicKey       *rsa.PublicKey
	TokenHeader     string
	TokenPrefix     string
	SigningMethod   jwt.SigningMethod
	TokenExpiry     time.Duration
	RefreshExpiry   time.Duration
	ClaimsExtractor func(jwt.MapClaims) (*User, error)
}

// JWTAuthenticator authenticates requests carrying a bearer token. A
// request without the configured header is passed to the next candidate in
// the chain; a present but invalid token fails the request immediately.
type JWTAuthenticator struct {
	config JWTConfig
}

// JWTOption configures the JWT authenticator.
type JWTOption func(*JWTConfig)

// WithTokenHeader sets the header the token is extracted from.
func WithTokenHeader(header string) JWTOption {
	return func(c *JWTConfig) {
		c.TokenHeader = header
	}
}

// WithTokenPrefix sets the token prefix, "Bearer " by default.
func WithTokenPrefix(prefix string) JWTOption {
	return func(c *JWTConfig) {
		c.TokenPrefix = prefix
	}
}

// WithSigningMethod sets the JWT signing method.
func WithSigningMethod(method jwt.SigningMethod) JWTOption {
	return func(c *JWTConfig) {
		c.SigningMethod = method
	}
}

// WithTokenExpiry sets the access token lifetime.
func WithTokenExpiry(expiry time.Duration) JWTOption {
	return func(c *JWTConfig) {
		c.TokenExpiry = expiry
	}
}

// WithRSAKeys sets RSA keys for RS256 signing.
func WithRSAKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey) JWTOption {
	return func(c *JWTConfig) {
		c.PrivateKey = privateKey
		c.PublicKey = publicKey
	}
}

// WithClaimsExtractor sets a custom claims-to-principal mapping.
func WithClaimsExtractor(extractor func(jwt.MapClaims) (*User, error)) JWTOption {
	return func(c *JWTConfig) {
		c.ClaimsExtractor = extractor
	}
}

// NewJWT creates a JWT authenticator over a shared secret.
func NewJWT(secret []byte, opts ...JWTOption) *JWTAuthenticator {
	config := JWTConfig{
		Secret:          secret,
		TokenHeader:     "Authorization",
		TokenPrefix:     "Bearer ",
		SigningMethod:   jwt.SigningMethodHS256,
		TokenExpiry:     1 * time.Hour,
		RefreshExpiry:   7 * 24 * time.Hour,
		ClaimsExtractor: defaultClaimsExtractor,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &JWTAuthenticator{config: config}
}

// Authenticate implements typedrest.Authenticator.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (interface{}, error) {
	tokenString, ok := a.extractToken(r)
	if !ok {
		return nil, nil
	}

	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return nil, &typedrest.NotAuthenticatedError{Detail: err.Error()}
	}

	user, err := a.config.ClaimsExtractor(claims)
	if err != nil {
		return nil, &typedrest.NotAuthenticatedError{Detail: err.Error()}
	}
	return user, nil
}

// SecurityScheme implements typedrest.SecuritySchemeProvider.
func (a *JWTAuthenticator) SecurityScheme() typedrest.SecurityScheme {
	return typedrest.SecurityScheme{
		Name:         "bearerAuth",
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
}

func (a *JWTAuthenticator) extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get(a.config.TokenHeader)
	if header == "" || !strings.HasPrefix(header, a.config.TokenPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, a.config.TokenPrefix)
	return token, token != ""
}

// ValidateToken validates a token string and returns its claims.
func (a *JWTAuthenticator) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != a.config.SigningMethod {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		switch a.config.SigningMethod {
		case jwt.SigningMethodHS256, jwt.SigningMethodHS512:
			return a.config.Secret, nil
		case jwt.SigningMethodRS256:
			return a.config.PublicKey, nil
		default:
			return nil, fmt.Errorf("unsupported signing method: %v", a.config.SigningMethod)
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// IssueTokenPair signs an access and refresh token pair for a user.
func (a *JWTAuthenticator) IssueTokenPair(user *User) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(a.config.TokenExpiry)

	accessToken := jwt.NewWithClaims(a.config.SigningMethod, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"roles":   user.Roles,
		"sub":     user.ID,
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	})
	accessTokenString, err := a.signToken(accessToken)
	if err != nil {
		return nil, err
	}

	refreshToken := jwt.NewWithClaims(a.config.SigningMethod, jwt.MapClaims{
		"user_id": user.ID,
		"sub":     user.ID,
		"iat":     now.Unix(),
		"exp":     now.Add(a.config.RefreshExpiry).Unix(),
		"type":    "refresh",
	})
	refreshTokenString, err := a.signToken(refreshToken)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresAt:    expiresAt,
	}, nil
}

// RefreshAccessToken issues a new token pair from a valid refresh token.
func (a *JWTAuthenticator) RefreshAccessToken(refreshToken string) (*TokenPair, error) {
	claims, err := a.ValidateToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		return nil, errors.New("invalid refresh token: not a refresh token")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid refresh token: missing user_id")
	}

	return a.IssueTokenPair(&User{ID: userID})
}

func (a *JWTAuthenticator) signToken(token *jwt.Token) (string, error) {
	switch a.config.SigningMethod {
	case jwt.SigningMethodHS256, jwt.SigningMethodHS512:
		return token.SignedString(a.config.Secret)
	case jwt.SigningMethodRS256:
		return token.SignedString(a.config.PrivateKey)
	default:
		return "", fmt.Errorf("unsupported signing method: %v", a.config.SigningMethod)
	}
}

func defaultClaimsExtractor(claims jwt.MapClaims) (*User, error) {
	userID, ok := claims["user_id"].(string)
	if !ok {
		sub, ok := claims["sub"].(string)
		if !ok {
			return nil, ErrInvalidClaims
		}
		userID = sub
	}

	email, _ := claims["email"].(string)

	var roles []string
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, role := range raw {
			if s, ok := role.(string); ok {
				roles = append(roles, s)
			}
		}
	}

	return &User{ID: userID, Email: email, Roles: roles}, nil
}
