// README: API gateway; holds service dependencies and builds the gin engine.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carhire/internal/http/handlers"
	"carhire/internal/infra"
	"carhire/internal/modules/quote"
)

type ServerDeps struct {
	Quote        handlers.QuoteService
	Pricing      handlers.PricingAdmin
	Availability quote.AvailabilityResolver
	Verifier     infra.TokenVerifier
	QuoteTimeout time.Duration
}

type Server struct {
	quote        handlers.QuoteService
	pricing      handlers.PricingAdmin
	availability quote.AvailabilityResolver
	verifier     infra.TokenVerifier
	quoteTimeout time.Duration
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		quote:        deps.Quote,
		pricing:      deps.Pricing,
		availability: deps.Availability,
		verifier:     deps.Verifier,
		quoteTimeout: deps.QuoteTimeout,
	}
}

func (s *Server) Routes() http.Handler {
	handlers.RegisterValidators()
	r := gin.New()
	registerRoutes(r, s)
	return r
}
