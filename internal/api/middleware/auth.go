package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grievance/backend/internal/apperrors"
	"grievance/backend/internal/auth"
)

const identityKey = "identity"

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// Authenticate requires a valid bearer token and stores the caller's
// identity on the context. Browsers cannot set headers on a WebSocket
// handshake, so the access_token query parameter is accepted as well.
func Authenticate(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			abort(c, apperrors.NewUnauthorizedError("authorization token missing"))
			return
		}

		id, err := tokens.Parse(token)
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// GetIdentity returns the identity stored by Authenticate.
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abort(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.NewInternalError("internal server error")
	}
	code := appErr.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(code, gin.H{"error": appErr})
}
