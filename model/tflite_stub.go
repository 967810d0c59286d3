//go:build notflite

package model

import "fmt"

func openTFLite(path string, _ int) (Backend, error) {
	return nil, fmt.Errorf("tflite backend not compiled in (built with -tags notflite), cannot open %s", path)
}
