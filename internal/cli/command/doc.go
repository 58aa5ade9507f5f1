// Package command provides the respd-cli application.
//
// It uses urfave/cli/v2 for flag parsing. With arguments the CLI sends a
// single command and prints the reply; without arguments it starts the
// interactive REPL. As in redis-cli, -h selects the host and help is only
// available as --help.
package command
