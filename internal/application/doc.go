// Package application provides application initialization and dependency wiring.
// It opens the managed config store, wraps it for concurrent access and builds
// the admin handlers, router, HTTP server and file watcher, keeping the main
// package focused on CLI parsing and orchestration.
package application
