package export

import "fmt"

// ConfigError reports an invalid parameter combination. All parameters are
// validated before any processing or output happens.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// FrameWriteError reports an I/O failure while serializing one frame. The
// run aborts without writing the manifest; frame files written before the
// failure are left in place.
type FrameWriteError struct {
	Frame int
	Err   error
}

func (e *FrameWriteError) Error() string {
	return fmt.Sprintf("writing frame %d: %v", e.Frame, e.Err)
}

func (e *FrameWriteError) Unwrap() error { return e.Err }
