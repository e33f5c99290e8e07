package middleware

import (
	"context"
	"net/http"
	"strings"

	"telemed-backend/internal/delivery/dto"
	"telemed-backend/internal/domain/entity"
	"telemed-backend/pkg/jwt"
	"telemed-backend/pkg/response"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	RoleKey      contextKey = "role"
)

// ProfileLookup resolves a registered profile; used when a token carries no role
type ProfileLookup interface {
	GetByID(ctx context.Context, uid string) (*dto.UserResponse, error)
}

type AuthMiddleware struct {
	jwtService *jwt.JWTService
	profiles   ProfileLookup
	log        *logrus.Logger
}

func NewAuthMiddleware(jwtService *jwt.JWTService, profiles ProfileLookup, log *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		profiles:   profiles,
		log:        log,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}
		if entity.ValidateIdentity(claims.UserID) != nil {
			response.Unauthorized(w, "Invalid token subject")
			return
		}

		role := entity.Role(claims.Role)
		if role == "" && m.profiles != nil {
			profile, err := m.profiles.GetByID(r.Context(), claims.UserID)
			if err != nil {
				m.log.Warnf("Failed to resolve role of %s: %+v", claims.UserID, err)
				response.Error(w, http.StatusServiceUnavailable, "Failed to resolve user role", nil)
				return
			}
			if profile != nil {
				role = entity.Role(profile.Role)
			}
		}
		if role != "" && !role.Valid() {
			response.Unauthorized(w, "Invalid token role")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		ctx = context.WithValue(ctx, RoleKey, role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reads "Authorization: Bearer <token>". Browsers cannot set
// headers on websocket upgrades, so those may pass access_token instead.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if isWebsocketUpgrade(r) {
			token := r.URL.Query().Get("access_token")
			return token, token != ""
		}
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetUserEmailFromContext extracts user email from context
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}

// GetRoleFromContext extracts the actor role from context. The role is empty
// for identities that have not registered a profile yet.
func GetRoleFromContext(ctx context.Context) (entity.Role, bool) {
	role, ok := ctx.Value(RoleKey).(entity.Role)
	return role, ok
}

// GetActorFromContext returns the authenticated actor
func GetActorFromContext(ctx context.Context) (entity.Actor, bool) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return entity.Actor{}, false
	}
	role, _ := GetRoleFromContext(ctx)
	return entity.Actor{ID: userID, Role: role}, true
}
