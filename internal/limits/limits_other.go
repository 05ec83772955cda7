//go:build !linux && !windows

package limits

func apply(Limits) error {
	return ErrUnsupported
}
