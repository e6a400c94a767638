package show

import "errors"

var (
	// ErrUnknownMode is returned by Load for names without a loader.
	ErrUnknownMode = errors.New("unknown mode")
	// ErrDeviceUnavailable means a graphics context or audio device could
	// not be acquired at start.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrPermissionDenied means audio or orientation access was refused.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrShaderLink means a shader program failed to compile.
	ErrShaderLink = errors.New("shader link failed")
	// ErrDeviceLost is reported when a running mode loses its device.
	ErrDeviceLost = errors.New("device lost")
	// ErrBusy is returned by Activate while another activation is starting.
	ErrBusy = errors.New("controller busy")
)
