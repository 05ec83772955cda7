package api

import (
	"errors"
	"io/fs"

	"github.com/danielgtaylor/huma/v2"

	"github.com/milmil7/gui-reaper/internal/control"
)

var errInvalidAuthType = errors.New("invalid authentication type")

// mapControlError converts a controller error to the matching HTTP error.
func mapControlError(err error) error {
	var ce *control.Error
	if !errors.As(err, &ce) {
		return huma.Error500InternalServerError("internal server error", err)
	}

	switch ce.Code {
	case control.ErrCodeNotFound:
		return huma.Error404NotFound(ce.Message, err)
	case control.ErrCodeInvalidParams:
		return huma.Error400BadRequest(ce.Message, err)
	case control.ErrCodePlatformAPIFailure:
		if errors.Is(err, fs.ErrPermission) {
			return huma.Error403Forbidden(ce.Message, err)
		}
		return huma.Error500InternalServerError(ce.Message, err)
	case control.ErrCodePlatformUnsupported:
		return huma.Error501NotImplemented(ce.Message, err)
	case control.ErrCodeLaunchFailure, control.ErrCodeEscalationFailure:
		return huma.Error500InternalServerError(ce.Message, err)
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}
