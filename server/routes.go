package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// Sign-in (browser navigations)
	s.RegisterRouteHandler("GET "+RouteAuthProvider, ChainMiddleware(s.BeginSignInHandler(), s.HTMLMiddleWare(RouteAuthProvider)...))
	s.RegisterRouteHandler("GET "+RouteAuthProviderCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleWare(RouteAuthProviderCallback)...))

	// JSON API
	s.RegisterRouteHandler("GET "+RouteAPIAuthStatus, ChainMiddleware(s.AuthStatusHandler(), s.APIMiddleware(RouteAPIAuthStatus)...))
	s.RegisterRouteHandler("POST "+RouteAPIEvents, ChainMiddleware(s.CreateEventHandler(), s.APIMiddleware(RouteAPIEvents, s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(RouteAuthLogout)...))
	s.RegisterRouteHandler("GET "+RouteAPIEmbedURL, ChainMiddleware(s.EmbedURLHandler(), s.APIMiddleware(RouteAPIEmbedURL)...))

	// CORS preflight; answered by CorsMiddleware
	for _, route := range []string{RouteAPIAuthStatus, RouteAPIEvents, RouteAuthLogout, RouteAPIEmbedURL} {
		s.RegisterRouteHandler("OPTIONS "+route, ChainMiddleware(http.NotFound, s.APIMiddleware(route)...))
	}

	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Browser UI
	s.RegisterRouteHandler("GET /", ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare("static")...))
}
