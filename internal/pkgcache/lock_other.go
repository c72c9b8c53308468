//go:build !unix

package pkgcache

// fileLock is a no-op where flock is unavailable. Installs still stage into a
// temporary directory and rename into place, so readers never see a partial
// package; two processes may download the same version twice.
type fileLock struct{}

func acquireLock(string) (*fileLock, error) {
	return &fileLock{}, nil
}

// Release is a no-op.
func (l *fileLock) Release() {}
