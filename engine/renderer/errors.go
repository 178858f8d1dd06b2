package renderer

import "errors"

var (
	ErrNotInFrame          = errors.New("quad submitted outside of BeginFrame/EndFrame")
	ErrFrameInProgress     = errors.New("BeginFrame called while a frame is in progress")
	ErrReentrantSubmit     = errors.New("quad submitted while a batch is being flushed")
	ErrNilQuad             = errors.New("nil quad")
	ErrInvalidTextureSlots = errors.New("max texture slots must be between 2 and 16")
	ErrInvalidBatchSize    = errors.New("quads per batch must be greater than 0")
	ErrNilBackend          = errors.New("renderer backend is nil")
	ErrNilShader           = errors.New("quad shader is nil")
)
