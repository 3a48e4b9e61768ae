// Package server implements the MiniExpress listener: it binds a TCP
// socket, accepts connections, and serves exactly one request per
// connection on its own goroutine before closing it.
package server
