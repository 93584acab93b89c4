//go:build !linux && !darwin

package poller

// New 在不支持的平台返回 ErrNotSupported
func New() (Multiplexer, error) {
	return nil, ErrNotSupported
}
