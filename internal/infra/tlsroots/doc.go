// Package tlsroots builds client TLS settings for backend connections.
//
//   - roots.go: system roots plus a custom CA bundle
//   - watcher.go: client key pair hot-reload via fsnotify
package tlsroots
