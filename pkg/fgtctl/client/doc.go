// Package client implements the HTTP transport to a FortiGate device's
// REST management API, supporting API-key bearer authentication and
// cookie/CSRF session authentication.
package client
