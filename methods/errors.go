package methods

import "errors"

// Domain errors for the vector pipeline. Callers classify with errors.Is and
// the HTTP layer maps each one to a status code.
var (
	ErrInvalidIdentifier    = errors.New("invalid identifier")
	ErrUnsafeArchiveEntry   = errors.New("unsafe archive entry")
	ErrIncompleteShapefile  = errors.New("incomplete shapefile")
	ErrUnknownCrs           = errors.New("unknown coordinate system")
	ErrSizeLimitExceeded    = errors.New("size limit exceeded")
	ErrFeatureLimitExceeded = errors.New("feature limit exceeded")
	ErrLoaderUnavailable    = errors.New("geometry loader unavailable")
	ErrLoadFailure          = errors.New("geometry load failed")
	ErrSpatialStore         = errors.New("spatial store error")
	ErrNotFound             = errors.New("resource not found")
	ErrNotAuthorized        = errors.New("not authorized")
)
