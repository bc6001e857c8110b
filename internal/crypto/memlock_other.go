//go:build !(linux || darwin || freebsd)

package crypto

func LockMemory(b []byte) error   { return nil }
func UnlockMemory(b []byte) error { return nil }
