//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package ssdp

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/MrSnakeDoc/dialcast/internal/logger"
)

// reuseControl enables SO_REUSEADDR and SO_REUSEPORT so several responders can
// share the SSDP port. Failures only get a debug line.
func reuseControl(log logger.Logger) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		err := c.Control(func(fd uintptr) {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
				log.Debug("SO_REUSEADDR not applied", logger.String("addr", address), logger.Error(err))
			}
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
				log.Debug("SO_REUSEPORT not applied", logger.String("addr", address), logger.Error(err))
			}
		})
		if err != nil {
			log.Debug("raw socket control unavailable", logger.Error(err))
		}
		return nil
	}
}
