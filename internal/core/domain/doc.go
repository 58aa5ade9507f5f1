// Package domain defines the core value types shared by the command
// implementations: stored entries and the operation errors that are
// rendered back to clients.
package domain
