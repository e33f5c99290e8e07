package middleware

import (
	"net/http"

	"telemed-backend/internal/domain/entity"
	"telemed-backend/pkg/response"
)

// RequireRole creates a middleware that checks if the user has any of the required roles
// Role is read from context (set by AuthMiddleware)
func RequireRole(allowed ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}
			if role == "" {
				response.Forbidden(w, "Register a profile first")
				return
			}

			for _, a := range allowed {
				if role == a {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, "You don't have permission to access this resource")
		})
	}
}

// RequireRegistered admits any actor with a registered role
func RequireRegistered(next http.Handler) http.Handler {
	return RequireRole(entity.RoleDoctor, entity.RolePatient)(next)
}

// RequireDoctor is a convenience middleware for doctor-only endpoints
func RequireDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleDoctor)(next)
}
