package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"

	"github.com/semcare/triage-api/internal/handler"
	"github.com/semcare/triage-api/internal/model"
)

const ContextActor = "actor"

const (
	tokenCacheTTL     = time.Minute
	tokenCacheCleanup = 5 * time.Minute
)

// ActorClaims are the token claims minted by the external identity service.
type ActorClaims struct {
	Role      string `json:"role"`
	LicenseID string `json:"license_id,omitempty"`
	PatientID string `json:"patient_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies bearer tokens and places the resulting Actor in
// the request context. Token issuance lives upstream; this only consumes.
type AuthMiddleware struct {
	secret []byte
	// verified tokens are cached briefly so repeat calls skip signature checks
	tokens *cache.Cache
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		tokens: cache.New(tokenCacheTTL, tokenCacheCleanup),
	}
}

// Authenticate verifies the bearer token and sets the actor in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.Failure("missing authorization header"))
			return
		}

		raw := strings.TrimPrefix(authHeader, "Bearer ")
		if raw == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.Failure("invalid authorization header"))
			return
		}

		if cached, ok := m.tokens.Get(raw); ok {
			c.Set(ContextActor, cached.(model.Actor))
			c.Next()
			return
		}

		actor, expiresAt, err := m.parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.Failure(err.Error()))
			return
		}

		// Never cache past the token's own expiry.
		ttl := tokenCacheTTL
		if expiresAt != nil {
			if remaining := time.Until(expiresAt.Time); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			m.tokens.Set(raw, actor, ttl)
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// RequireRoles rejects actors whose role is not in the allowed set.
func (m *AuthMiddleware) RequireRoles(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !allowed[actor.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.Failure("role not permitted"))
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) parse(raw string) (model.Actor, *jwt.NumericDate, error) {
	var claims ActorClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return model.Actor{}, nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return model.Actor{}, nil, fmt.Errorf("invalid token")
	}

	role := model.Role(claims.Role)
	if !role.Valid() {
		return model.Actor{}, nil, fmt.Errorf("unknown role %q", claims.Role)
	}

	return model.Actor{
		ID:               claims.Subject,
		Role:             role,
		LicenseID:        claims.LicenseID,
		SubjectPatientID: claims.PatientID,
	}, claims.ExpiresAt, nil
}

// ActorFrom extracts the authenticated actor from the gin context.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
