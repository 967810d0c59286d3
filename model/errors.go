package model

import "errors"

var (
	ErrArtifactMissing = errors.New("model artifact not found")
	ErrArtifactInvalid = errors.New("model artifact invalid")
	ErrShapeMismatch   = errors.New("model tensor shape mismatch")
	ErrLabelIndex      = errors.New("label index out of range")
	ErrInputSize       = errors.New("input tensor has wrong size")
	ErrClosed          = errors.New("model runtime closed")
)
