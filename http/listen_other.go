//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package http

import "syscall"

// SO_REUSEPORT is not available, the option is ignored.
func listenControl(bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
