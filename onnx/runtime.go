package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/krau/handsign/config"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	pathOnce sync.Once
	libPath  string

	envMu sync.Mutex
)

// LibPath resolves the ONNX Runtime shared library once per process.
func LibPath() string {
	pathOnce.Do(func() {
		libPath = loadLibPath(config.C().Libonnx)
		if libPath == "" {
			slog.Error("ONNX Runtime library path could not be determined for this OS")
		} else {
			slog.Info("Using ONNX Runtime library", slog.String("path", libPath))
		}
	})
	return libPath
}

func loadLibPath(configured string) string {
	if configured != "" {
		return configured
	}
	for _, path := range candidates(runtime.GOOS) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func candidates(goos string) []string {
	switch goos {
	case "linux":
		return []string{
			filepath.Join("onnxlibs", "libonnxruntime.so"),
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
		}
	case "darwin":
		return []string{
			filepath.Join("onnxlibs", "libonnxruntime.dylib"),
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
		}
	case "windows":
		return []string{filepath.Join("onnxlibs", "onnxruntime.dll")}
	default:
		return nil
	}
}

// Ensure initializes the ONNX Runtime environment if it is not running yet.
// It is safe to call from every backend constructor.
func Ensure() error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	path := LibPath()
	if path == "" {
		return fmt.Errorf("onnxruntime shared library not found")
	}
	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	return nil
}

// Shutdown destroys the environment; a no-op when Ensure never succeeded.
func Shutdown() {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Warn("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
	}
}
