// Package privdrop drops root privileges once every listening socket has
// been bound, and applies the socket options the socket workers need before
// handing a raw file descriptor to net.ListenConfig.
package privdrop

import (
	"fmt"
	"os/user"
	"strconv"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Barrier is a busy-wait barrier gating privilege drop on every socket
// worker having bound its listener. A condition variable would do equally
// well; a busy-wait is acceptable because it runs once at startup and the
// bound condition arrives within milliseconds.
type Barrier struct {
	bound  int64
	target int64
}

// NewBarrier creates a Barrier that releases once target sockets have
// signaled Bound.
func NewBarrier(target int) *Barrier {
	return &Barrier{target: int64(target)}
}

// Bound signals that one more socket has finished binding.
func (b *Barrier) Bound() { atomic.AddInt64(&b.bound, 1) }

// Ready reports whether every expected socket has bound.
func (b *Barrier) Ready() bool { return atomic.LoadInt64(&b.bound) >= b.target }

// Drop performs chroot(chrootPath) followed by setgid/setuid to the named
// user's primary group and uid. It must be called after every listening
// socket has bound, and only once: the calling process loses the
// privileges needed to undo it.
func Drop(chrootPath, username string) error {
	if chrootPath != "" {
		if err := unix.Chroot(chrootPath); err != nil {
			return fmt.Errorf("privdrop: chroot %q: %w", chrootPath, err)
		}
		if err := unix.Chdir("/"); err != nil {
			return fmt.Errorf("privdrop: chdir after chroot: %w", err)
		}
	}

	if username == "" {
		return nil
	}

	u, err := user.Lookup(username)
	if err != nil {
		return fmt.Errorf("privdrop: lookup user %q: %w", username, err)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("privdrop: parse gid %q: %w", u.Gid, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("privdrop: parse uid %q: %w", u.Uid, err)
	}

	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("privdrop: setgid %d: %w", gid, err)
	}
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("privdrop: setuid %d: %w", uid, err)
	}

	return nil
}
