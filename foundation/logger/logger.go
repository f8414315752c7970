package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production sugared logger. When logDirectory is empty the
// logger writes to stdout, otherwise to <logDirectory>/<service>.log.
func New(logDirectory string, service string) (*zap.SugaredLogger, error) {
	outputPath := "stdout"

	if logDirectory != "" {
		if _, err := os.Stat(logDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(logDirectory, os.ModePerm); err != nil {
				return nil, err
			}
		}

		outputPath = filepath.Join(logDirectory, service+".log")

		f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{outputPath}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = false
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}
