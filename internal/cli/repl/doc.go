// Package repl provides the interactive mode of respd-cli.
//
// Lines are split into arguments with redis-cli quoting rules, executed
// through the supplied Executor and recorded in a persistent history. A
// line ending in a tab lists the command names starting with the typed
// prefix.
package repl
