package platform

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrRunningAsRoot is returned by DropRoot when the process runs as root and
// there is no sudo caller identity to fall back to.
var ErrRunningAsRoot = errors.New("running as root without SUDO_UID; cached packages will be owned by root")

// sudoIdentity reads the invoking user's uid and gid from SUDO_UID and
// SUDO_GID. ok is false when SUDO_UID is unset.
func sudoIdentity(getenv func(string) string) (uid, gid int, ok bool, err error) {
	rawUID := getenv("SUDO_UID")
	if rawUID == "" {
		return 0, 0, false, nil
	}
	uid, err = strconv.Atoi(rawUID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parsing SUDO_UID %q: %w", rawUID, err)
	}
	gid = uid
	if rawGID := getenv("SUDO_GID"); rawGID != "" {
		gid, err = strconv.Atoi(rawGID)
		if err != nil {
			return 0, 0, false, fmt.Errorf("parsing SUDO_GID %q: %w", rawGID, err)
		}
	}
	return uid, gid, true, nil
}
