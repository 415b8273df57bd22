// Package middleware provides authentication, rate limiting, logging, tracing,
// and metrics middleware for the Fiber app.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TokenIssuer   = "inkwell-api"
	TokenAudience = "inkwell-client"
	TokenTTL      = 7 * 24 * time.Hour

	// WSTicketTTL bounds how long a WebSocket ticket may sit unused.
	WSTicketTTL = 30 * time.Second
)

// ErrInvalidToken is returned for any token that fails parsing or claim checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the fields inkwell reads from a session token.
type Claims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

// IssueToken signs a session token for the user.
func IssueToken(secret string, userID uint, username string, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"exp":      now.Add(TokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8]),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates signature, issuer, audience and expiry.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, ok := mc["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	claims := &Claims{UserID: uint(userID)}
	claims.Username, _ = mc["username"].(string)
	claims.JTI, _ = mc["jti"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" header.
func BearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// Authenticator resolves the caller from a bearer token or single-use
// WebSocket ticket. Redis backs tickets and the revocation list; without it
// tickets are unavailable and revocation is not enforced.
type Authenticator struct {
	secret string
	rdb    *redis.Client
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(secret string, rdb *redis.Client) *Authenticator {
	return &Authenticator{secret: secret, rdb: rdb}
}

func wsTicketKey(ticket string) string { return "ws_ticket:" + ticket }

func blacklistKey(jti string) string { return "blacklist:" + jti }

// Required rejects unauthenticated requests with 401 and stores the user id
// in c.Locals("userID") and the request context.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws")

		if ticket := c.Query("ticket"); ticket != "" && a.rdb != nil {
			if userID, ok := a.redeemTicket(c.UserContext(), ticket); ok {
				setUser(c, userID)
				return c.Next()
			}
			if isWSPath {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
		}

		tokenString := BearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := ParseToken(a.secret, tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		if claims.JTI != "" && a.rdb != nil {
			n, err := a.rdb.Exists(c.UserContext(), blacklistKey(claims.JTI)).Result()
			if err == nil && n > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Token has been revoked"))
			}
		}

		setUser(c, claims.UserID)
		c.Locals("claims", claims)
		return c.Next()
	}
}

// Optional returns the caller's user id when a valid bearer token is present.
func (a *Authenticator) Optional(c *fiber.Ctx) (uint, bool) {
	tokenString := BearerToken(c)
	if tokenString == "" {
		return 0, false
	}
	claims, err := ParseToken(a.secret, tokenString)
	if err != nil {
		return 0, false
	}
	if claims.JTI != "" && a.rdb != nil {
		if n, err := a.rdb.Exists(c.UserContext(), blacklistKey(claims.JTI)).Result(); err == nil && n > 0 {
			return 0, false
		}
	}
	return claims.UserID, true
}

// Revoke blacklists a token until it would have expired anyway.
func (a *Authenticator) Revoke(ctx context.Context, claims *Claims) error {
	if a.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return a.rdb.Set(ctx, blacklistKey(claims.JTI), "1", ttl).Err()
}

// IssueWSTicket stores a single-use ticket that authenticates one WebSocket upgrade.
func (a *Authenticator) IssueWSTicket(ctx context.Context, userID uint) (string, error) {
	if a.rdb == nil {
		return "", errors.New("websocket tickets require redis")
	}
	ticket := uuid.NewString()
	if err := a.rdb.Set(ctx, wsTicketKey(ticket), strconv.FormatUint(uint64(userID), 10), WSTicketTTL).Err(); err != nil {
		return "", err
	}
	return ticket, nil
}

func (a *Authenticator) redeemTicket(ctx context.Context, ticket string) (uint, bool) {
	// GETDEL makes redemption atomic across concurrent upgrades.
	raw, err := a.rdb.GetDel(ctx, wsTicketKey(ticket)).Result()
	if err != nil {
		return 0, false
	}
	userID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || userID == 0 {
		return 0, false
	}
	return uint(userID), true
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}
