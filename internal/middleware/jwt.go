package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"catalogfacets/internal/config"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ServiceContextKey holds the subject of the verified token on the echo context
const ServiceContextKey = "service"

var ErrNoSigningKey = errors.New("auth: either jwks_url or jwt secret must be configured")

// TokenVerifier checks the bearer tokens catalog writers present.
type TokenVerifier struct {
	keyFunc  jwt.Keyfunc
	methods  []string
	issuer   string
	audience string
	jwks     *keyfunc.JWKS
}

// NewTokenVerifier verifies against the JWKS at cfg.JWKSURL when set, otherwise
// against the shared HMAC secret.
func NewTokenVerifier(cfg config.AuthConfig, log *zap.Logger) (*TokenVerifier, error) {
	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   cfg.JWKSRefresh,
			RefreshRateLimit:  time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.Warn("jwks refresh failed", zap.String("url", cfg.JWKSURL), zap.Error(err))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("load jwks: %w", err)
		}
		v := newTokenVerifier(jwks.Keyfunc, []string{"RS256", "RS384", "RS512", "ES256", "ES384", "EdDSA"}, cfg.Issuer, cfg.Audience)
		v.jwks = jwks
		return v, nil
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		return newTokenVerifier(func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}, []string{"HS256"}, cfg.Issuer, cfg.Audience), nil
	default:
		return nil, ErrNoSigningKey
	}
}

func newTokenVerifier(keyFunc jwt.Keyfunc, methods []string, issuer, audience string) *TokenVerifier {
	return &TokenVerifier{keyFunc: keyFunc, methods: methods, issuer: issuer, audience: audience}
}

// Close stops the background JWKS refresh
func (v *TokenVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func (v *TokenVerifier) parser() *jwt.Parser {
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired(), jwt.WithLeeway(30 * time.Second)}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	return jwt.NewParser(opts...)
}

// JWTMiddleware rejects requests without a valid bearer token
func (v *TokenVerifier) JWTMiddleware(log *zap.Logger) echo.MiddlewareFunc {
	parser := v.parser()
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: "token",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			token, err := parser.ParseWithClaims(auth, &jwt.RegisteredClaims{}, v.keyFunc)
			if err != nil {
				return nil, err
			}
			if !token.Valid {
				return nil, errors.New("token not valid")
			}
			return token, nil
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("token").(*jwt.Token)
			if !ok {
				return
			}
			if claims, ok := token.Claims.(*jwt.RegisteredClaims); ok {
				c.Set(ServiceContextKey, claims.Subject)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			log.Debug("rejected token", zap.String("path", c.Path()), zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or missing token")
		},
	})
}
