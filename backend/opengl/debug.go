package opengl

import (
	"context"
	"log/slog"
	"os"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/go-theft-auto/render"
)

// logger shares its level with the render package, so render.SetVerbose
// controls both.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: render.LogLevel()}))

// SetLogger replaces the logger used for driver messages.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// EnableDebugOutput forwards driver debug messages to the package logger.
// It needs a debug context (WithDebugContext) to receive anything useful.
func EnableDebugOutput() {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(debugMessage, nil)
}

func debugMessage(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
	level := debugLevel(severity)
	if !logger.Enabled(context.Background(), level) {
		return
	}
	logger.Log(context.Background(), level, message,
		"source", debugSource(source),
		"type", debugType(gltype),
		"id", id,
	)
}

func debugLevel(severity uint32) slog.Level {
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		return slog.LevelError
	case gl.DEBUG_SEVERITY_MEDIUM:
		return slog.LevelWarn
	case gl.DEBUG_SEVERITY_LOW:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func debugSource(source uint32) string {
	switch source {
	case gl.DEBUG_SOURCE_API:
		return "api"
	case gl.DEBUG_SOURCE_WINDOW_SYSTEM:
		return "window-system"
	case gl.DEBUG_SOURCE_SHADER_COMPILER:
		return "shader-compiler"
	case gl.DEBUG_SOURCE_THIRD_PARTY:
		return "third-party"
	case gl.DEBUG_SOURCE_APPLICATION:
		return "application"
	default:
		return "other"
	}
}

func debugType(t uint32) string {
	switch t {
	case gl.DEBUG_TYPE_ERROR:
		return "error"
	case gl.DEBUG_TYPE_DEPRECATED_BEHAVIOR:
		return "deprecated"
	case gl.DEBUG_TYPE_UNDEFINED_BEHAVIOR:
		return "undefined"
	case gl.DEBUG_TYPE_PORTABILITY:
		return "portability"
	case gl.DEBUG_TYPE_PERFORMANCE:
		return "performance"
	default:
		return "other"
	}
}
