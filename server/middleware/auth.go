package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/jobflow/errors"
)

// ClaimsKey is the gin context key holding validated claims.
const ClaimsKey = "auth.claims"

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (map[string]any, error)

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Secret is the HMAC key for HS256/HS384/HS512 tokens.
	Secret   string `yaml:"secret" mapstructure:"secret"`
	Issuer   string `yaml:"issuer" mapstructure:"issuer"`
	Audience string `yaml:"audience" mapstructure:"audience"`
}

func (c *AuthConfig) Validate() error {
	if c.Enabled && c.Secret == "" {
		return fmt.Errorf("auth.secret is required when auth is enabled")
	}
	return nil
}

// HMACValidator verifies HS-signed JWTs against cfg.
func HMACValidator(cfg AuthConfig) TokenValidator {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		gojwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(cfg.Audience))
	}
	parser := gojwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(token string) (map[string]any, error) {
		claims := gojwt.MapClaims{}
		_, err := parser.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
			return key, nil
		})
		if err != nil {
			return nil, err
		}
		return claims, nil
	}
}

// Auth rejects requests without a valid bearer token. Validated claims are
// stored under ClaimsKey.
func Auth(validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			appErr := errors.Unauthorized("Bearer token required.")
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		claims, err := validate(token)
		if err != nil {
			appErr := errors.Unauthorized("Invalid token.")
			_ = c.Error(err)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
