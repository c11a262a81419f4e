package util

import (
	"fmt"

	"github.com/pkg/errors"
)

// PanicToError converts a recovered panic value into an error carrying a
// stack trace from the point of conversion.
func PanicToError(e any) (err error) {
	switch v := e.(type) {
	case nil:
		return nil
	case error:
		err = errors.WithStack(v)
	case string:
		err = errors.New(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		err = errors.Errorf("panic code: %d", v)
	case uintptr:
		err = errors.Errorf("panic uintptr: %d", v)
	case float32, float64:
		err = errors.Errorf("panic code: %f", v)
	case fmt.Stringer:
		err = errors.New(v.String())
	default:
		err = errors.Errorf("panic: %v", v)
	}
	return
}
