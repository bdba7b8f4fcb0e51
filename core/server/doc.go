// Package server holds the HTTP server configuration.
//
// The Config struct defines the HTTP port, the API key protecting every route
// and the read and write timeouts handed to Fiber.
package server
