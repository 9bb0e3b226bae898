package progress

import "time"

// SetNowFunc swaps the service clock and returns a function restoring it.
func SetNowFunc(f func() time.Time) (restore func()) {
	orig := nowFunc
	nowFunc = f
	return func() { nowFunc = orig }
}
