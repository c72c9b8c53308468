//go:build !unix

package platform

// DropRoot is a no-op on platforms without Unix user ids.
func DropRoot() (bool, error) {
	return false, nil
}
