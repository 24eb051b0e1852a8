package handlers

import "time"

// Config holds the settings handlers need from the server configuration.
type Config struct {
	JWTKey       []byte
	TokenTTL     time.Duration
	MaxBodyBytes int64
}
