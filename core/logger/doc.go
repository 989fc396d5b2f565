// Package logger records job lifecycle events for a shell session as
// newline delimited JSON and summarizes them.
package logger
