package service

import (
	"errors"
	"fmt"
)

var (
	ErrModelUnavailable = errors.New("model not loaded")
	ErrNoImage          = errors.New("no image provided")
	ErrDecodeFailed     = errors.New("image could not be decoded")
)

// InferenceError is an unexpected failure in preprocessing, classification
// or label mapping.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// ItemError scopes a batch failure to the image that caused it.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("image %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
