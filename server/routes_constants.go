package server

// Route path constants
const (
	// Sign-in
	RouteAuthProvider         = "/auth/provider"
	RouteAuthProviderCallback = "/auth/provider/callback"
	RouteAuthLogout           = "/auth/logout"

	// API
	RouteAPIAuthStatus = "/api/auth/status"
	RouteAPIEvents     = "/api/events"
	RouteAPIEmbedURL   = "/api/embed-url"

	// Operations
	RouteMetrics = "/metrics"
)
