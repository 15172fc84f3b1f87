// Package main is the entry point for the rewind history server.
//
// The server owns one project directory (the target) and exposes its scene
// graph, asset store, and undo history over a REST API plus a WebSocket
// event stream. One instance serves one target; a shared on-disk registry
// lets tooling find the instance for a project.
//
// Configuration comes from REWIND_* environment variables, an optional
// TOML file, and CLI flags, in increasing priority.
//
// Usage:
//
//	./server -target /path/to/project -port 8765
//
// Signals:
//   - SIGINT, SIGTERM: seal the open task, persist history, deregister
package main
