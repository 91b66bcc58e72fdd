package privdrop

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SocketOptions are applied to a listening UDP socket before it is bound,
// mirroring the socket2 configuration aquatic's create_socket performs
// before handing the fd to its async runtime.
type SocketOptions struct {
	OnlyIPv6       bool
	RecvBufferSize int
}

// Control returns a function suitable for net.ListenConfig.Control: it sets
// SO_REUSEPORT unconditionally (every socket worker binds the same address)
// and applies the optional IPv6-only and receive-buffer-size options.
func Control(opts SocketOptions) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			if sockErr != nil {
				return
			}

			if opts.RecvBufferSize > 0 {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, opts.RecvBufferSize)
				if sockErr != nil {
					return
				}
			}

			if network == "udp6" {
				v6only := 0
				if opts.OnlyIPv6 {
					v6only = 1
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, v6only)
			}
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
