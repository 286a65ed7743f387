package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/learnloop/assignment-engine/internal/config"
	"github.com/learnloop/assignment-engine/internal/models"
)

const sessionContextKey = "session_context"

// CasdoorAuthMiddleware verifies learner bearer tokens with Casdoor and
// injects the session context. The raw token is kept so upstream calls
// can be made on the learner's behalf.
type CasdoorAuthMiddleware struct {
	client *casdoorsdk.Client
	config config.CasdoorConfig
}

func NewCasdoorAuthMiddleware(cfg config.CasdoorConfig) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Application,
		cfg.Organization,
	)

	return &CasdoorAuthMiddleware{client: client, config: cfg}
}

// AuthMiddleware authenticates the request and stores the session
// context for handlers.
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "missing or malformed authorization header",
			})
			c.Abort()
			return
		}

		claims, err := cam.client.ParseJwtToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "invalid token",
			})
			c.Abort()
			return
		}

		learnerID := claims.User.Id
		if learnerID == "" {
			learnerID = claims.User.Name
		}
		if learnerID == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "token carries no user identity",
			})
			c.Abort()
			return
		}

		SetSessionContext(c, models.SessionContext{
			LearnerID: learnerID,
			Token:     token,
		})
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SetSessionContext stores the authenticated session context on the
// request.
func SetSessionContext(c *gin.Context, sess models.SessionContext) {
	c.Set(sessionContextKey, sess)
}

// GetSessionContext retrieves the authenticated session context.
func GetSessionContext(c *gin.Context) (models.SessionContext, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return models.SessionContext{}, false
	}
	sess, ok := v.(models.SessionContext)
	return sess, ok
}
