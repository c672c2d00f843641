package dds

import "errors"

// Every error returned by this package and by the client wraps exactly one
// of these. Test with errors.Is.
var (
	ErrSizeMismatch   = errors.New("size mismatch: phase sequence is not the right size")
	ErrTypeMismatch   = errors.New("type mismatch: phase offset is not a number")
	ErrConnectFailure = errors.New("connect failure: could not connect to the DDS server")
	ErrNullResponse   = errors.New("null response: the DDS server returned no result")
	ErrBuildFailure   = errors.New("build failure: could not assemble the result")
)

// Kind names the failure class of err, or returns "" when err wraps none of
// the package sentinels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSizeMismatch):
		return "SizeMismatch"
	case errors.Is(err, ErrTypeMismatch):
		return "TypeMismatch"
	case errors.Is(err, ErrConnectFailure):
		return "ConnectFailure"
	case errors.Is(err, ErrNullResponse):
		return "NullResponse"
	case errors.Is(err, ErrBuildFailure):
		return "BuildFailure"
	default:
		return ""
	}
}
