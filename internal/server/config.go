package server

import (
	"net"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultPort = 8080

	// DefaultAcceptDeadline bounds each Accept call so the loop can
	// observe shutdown.
	DefaultAcceptDeadline = 500 * time.Millisecond

	// DefaultShutdownTimeout is how long Stop waits for in-flight
	// connections before force closing them.
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds configuration for the server.
type Config struct {
	// Address is the interface to bind; empty binds all interfaces.
	Address string

	// Port is the TCP port; 0 picks an ephemeral port.
	Port int

	// ReadTimeout bounds reading one request. Zero means no deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one response. Zero means no deadline.
	WriteTimeout time.Duration

	ShutdownTimeout time.Duration
	AcceptDeadline  time.Duration

	// MaxConnections bounds concurrently served connections. When the
	// bound is reached the accept loop waits. Zero means unbounded.
	MaxConnections int

	// MaxHeaderBytes bounds the request line plus headers. Zero uses
	// the parser default; negative disables the bound.
	MaxHeaderBytes int

	// MaxBodyBytes bounds the declared Content-Length. Zero means
	// unbounded.
	MaxBodyBytes int64
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Port:            DefaultPort,
		ShutdownTimeout: DefaultShutdownTimeout,
		AcceptDeadline:  DefaultAcceptDeadline,
	}
}

// ListenAddress returns the host:port string to bind.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

func (c *Config) acceptDeadline() time.Duration {
	if c.AcceptDeadline <= 0 {
		return DefaultAcceptDeadline
	}
	return c.AcceptDeadline
}

func (c *Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return c.ShutdownTimeout
}
