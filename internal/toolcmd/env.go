// Package toolcmd holds the cobra commands of every splatprep utility and the
// functions that execute them.
package toolcmd

import (
	"os"

	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Environment variables consulted when the matching flag is empty.
const (
	EnvColmap        = "COLMAP_EXECUTABLE"
	EnvMagick        = "MAGICK_EXECUTABLE"
	EnvFFmpeg        = "FFMPEG_EXECUTABLE"
	EnvFFprobe       = "FFPROBE_EXECUTABLE"
	EnvModelsDir     = "SPLATPREP_MODELS_DIR"
	EnvORTLibrary    = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
	EnvTrainScript   = "SPLATPREP_TRAIN_SCRIPT"
	EnvPython        = "SPLATPREP_PYTHON"
	EnvSweepDB       = "SPLATPREP_SWEEP_DB"
	defaultModelsDir = "models"
)

// newRunner is replaced in tests.
var newRunner = func() runner.Runner {
	return runner.NewExecRunner()
}

// envOr returns the flag value, else the environment variable, else def.
func envOr(flag, key, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
