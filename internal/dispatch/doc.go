// Package dispatch routes decoded commands to their handlers.
//
// A Registry maps lower-case command names to Handlers. Handlers are built
// from plain Go functions with the generic constructors in bind.go, which
// convert the raw argument bytes into typed parameters before the call.
// The Dispatcher looks a command up, binds and invokes it, and classifies
// the outcome into a Result the connection pipeline can act on.
package dispatch
