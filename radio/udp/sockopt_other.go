//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly && !windows

package udp

import "syscall"

func control(_, _ string, _ syscall.RawConn) error {
	return nil
}
