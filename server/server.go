package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/guardiao-iam/guardiao/generates"
	"github.com/guardiao-iam/guardiao/grants"
)

// Server wires the dispatcher and token generator into a Gin engine.
type Server struct {
	Config     *Config
	Dispatcher *grants.Dispatcher
	Tokens     *generates.JWTGenerator
	engine     *gin.Engine
}

// NewServer builds the router. The dispatcher must be fully wired; Tokens is
// taken from it for bearer validation.
func NewServer(cfg *Config, d *grants.Dispatcher) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	s := &Server{Config: cfg, Dispatcher: d, Tokens: d.Tokens}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/oauth/token", s.HandleTokenRequest)
	r.GET("/oauth/validate", s.TokenMiddleware(), s.HandleValidateRequest)

	s.engine = r
	return s
}

// Engine exposes the router for route registration by the embedding service.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run starts the HTTP listener.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// SigningMethodFromName maps a config string to a jwt.SigningMethod.
func SigningMethodFromName(name string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	case "RS256":
		return jwt.SigningMethodRS256, nil
	case "RS384":
		return jwt.SigningMethodRS384, nil
	case "RS512":
		return jwt.SigningMethodRS512, nil
	case "ES256":
		return jwt.SigningMethodES256, nil
	case "ES384":
		return jwt.SigningMethodES384, nil
	case "ES512":
		return jwt.SigningMethodES512, nil
	case "EDDSA":
		return jwt.SigningMethodEdDSA, nil
	default:
		return nil, fmt.Errorf("unsupported signing method %q", name)
	}
}
