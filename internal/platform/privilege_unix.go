//go:build unix

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DropRoot switches the process to the sudo caller's uid and gid when it is
// running as root, so files written to the package cache stay owned by the
// user. It reports whether privileges were dropped.
func DropRoot() (bool, error) {
	if unix.Geteuid() != 0 {
		return false, nil
	}
	uid, gid, ok, err := sudoIdentity(os.Getenv)
	if err != nil {
		return false, err
	}
	if !ok || uid == 0 {
		return false, ErrRunningAsRoot
	}
	if err := unix.Setgroups([]int{gid}); err != nil {
		return false, fmt.Errorf("setgroups: %w", err)
	}
	if err := unix.Setgid(gid); err != nil {
		return false, fmt.Errorf("setgid %d: %w", gid, err)
	}
	if err := unix.Setuid(uid); err != nil {
		return false, fmt.Errorf("setuid %d: %w", uid, err)
	}
	return true, nil
}
