// Package main provides the entry point for respd-cli.
//
// respd-cli sends commands to a respd (or any Redis compatible) server:
//
//	respd-cli [-h host] [-p port] [-o raw|json|yaml] [command [arg ...]]
//	respd-cli -p 6380 set greeting "hello world"
//	respd-cli -o json mget a b c
//
// Without a command it starts an interactive prompt with persistent
// history. Defaults are read from ~/.respd/cli.yaml.
package main
