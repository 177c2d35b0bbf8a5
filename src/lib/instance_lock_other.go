//go:build !unix

package lib

// InstanceLock is a no-op on platforms without flock.
type InstanceLock struct {
	path string
}

// AcquireInstanceLock always succeeds on platforms without flock.
func AcquireInstanceLock(path string) (*InstanceLock, error) {
	return &InstanceLock{path: path}, nil
}

// Release is a no-op.
func (l *InstanceLock) Release() error {
	return nil
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}
