package docs

// @title           Driver Session API
// @version         1.0
// @description     Control API of one driver's session: availability, incoming offers, the active ride and device location. Session notices stream over a WebSocket at /ws.

// @host      localhost:3010
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a JWT whose subject is the driver id.
