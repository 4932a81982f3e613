package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/http/response"
	"github.com/yungbote/eduvideo-backend/internal/platform/ctxutil"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

// Claims are issued by the identity service; sub carries the user UUID.
type Claims struct {
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), secret: []byte(secret)}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		rd, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("rejected bearer token", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.RequestData, error) {
	if len(am.secret) == 0 {
		return nil, fmt.Errorf("no signing secret configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return nil, fmt.Errorf("invalid subject")
	}
	return &ctxutil.RequestData{
		UserID:     userID,
		Role:       strings.ToLower(strings.TrimSpace(claims.Role)),
		Department: strings.TrimSpace(claims.Department),
	}, nil
}

// RequireOperator guards the unsafe admin routes.
func RequireOperator() gin.HandlerFunc {
	return requireRole("operator role required", (*ctxutil.RequestData).IsOperator)
}

func RequireReviewer() gin.HandlerFunc {
	return requireRole("reviewer role required", (*ctxutil.RequestData).CanReview)
}

func requireRole(msg string, allowed func(*ctxutil.RequestData) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || !allowed(rd) {
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New(msg))
			return
		}
		c.Next()
	}
}

// RequireInternalToken authenticates AI-service callbacks by X-Internal-Token.
// An empty configured token rejects every call.
func RequireInternalToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("X-Internal-Token"))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid internal token"))
			return
		}
		c.Next()
	}
}

// SignToken mints an HS256 token in the format RequireAuth accepts.
func SignToken(secret string, userID uuid.UUID, role, department string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:       role,
		Department: department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	// EventSource cannot set headers.
	if c.Request.Method == http.MethodGet {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}
