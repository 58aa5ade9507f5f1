//go:build !linux

package redisserver

import "syscall"

// Go already sets SO_REUSEADDR on unix listeners; SO_REUSEPORT is only
// supported on linux.
func listenControl(bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
