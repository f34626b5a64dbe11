//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package ssdp

import (
	"syscall"

	"github.com/MrSnakeDoc/dialcast/internal/logger"
)

func reuseControl(log logger.Logger) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		log.Debug("address reuse not supported on this platform", logger.String("addr", address))
		return nil
	}
}
