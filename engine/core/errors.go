package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrSystemNotReady   = errors.New("system not initialized")
	ErrUnknown          = errors.New("unknown")
)
