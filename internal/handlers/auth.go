package handlers

import (
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctoring-service/internal/config"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

// Identity is the authenticated proctor behind a request
type Identity struct {
	UserID      string
	Name        string
	DisplayName string
}

// TokenParser turns a bearer token into an identity
type TokenParser interface {
	Parse(token string) (*Identity, error)
}

type casdoorTokenParser struct{}

// NewCasdoorTokenParser initializes the casdoor SDK and returns a parser backed by it
func NewCasdoorTokenParser(cfg config.AuthConfig) TokenParser {
	casdoorsdk.InitConfig(cfg.Endpoint, cfg.ClientID, cfg.ClientSecret, cfg.Certificate, cfg.Organization, cfg.Application)
	return casdoorTokenParser{}
}

func (casdoorTokenParser) Parse(token string) (*Identity, error) {
	claims, err := casdoorsdk.ParseJwtToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID:      claims.User.Id,
		Name:        claims.User.Name,
		DisplayName: claims.User.DisplayName,
	}, nil
}

type AuthHandler struct {
	BaseHandler
	parser TokenParser
}

func NewAuthHandler(parser TokenParser, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		parser:      parser,
	}
}

// Middleware rejects requests without a valid bearer token. Browsers cannot set headers
// on a websocket handshake, so an access_token query parameter is accepted as well.
func (h *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			h.RespondWithError(c, http.StatusUnauthorized, "Missing bearer token", nil)
			c.Abort()
			return
		}

		identity, err := h.parser.Parse(token)
		if err != nil {
			h.LogWarn(c, "Token rejected", "error", err)
			h.RespondWithError(c, http.StatusUnauthorized, "Invalid token", nil)
			c.Abort()
			return
		}

		c.Set("user_id", identity.UserID)
		c.Set("user_name", identity.Name)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(c.Query("access_token"))
}
