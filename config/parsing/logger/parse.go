package logger

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ZettaScaleLabs/zplugin-ros2/config"
	"github.com/ZettaScaleLabs/zplugin-ros2/logger"
)

// ParseLogger builds a logger from the log section of the configuration.
// Returns nil when the section is absent.
func ParseLogger(cfg *config.LogConfig) logger.Logger {
	if cfg == nil {
		return nil
	}
	opts := []logger.Option{
		logger.FormatOption(logger.LogFormat(cfg.Format)),
		logger.LevelOption(logger.LogLevel(cfg.Level)),
	}

	var out io.Writer = os.Stderr
	switch cfg.Output {
	case "none", "null":
		return logger.Nop()
	case "stdout":
		out = os.Stdout
	case "stderr", "":
		out = os.Stderr
	default:
		if cfg.Rotation != nil {
			out = &lumberjack.Logger{
				Filename:   cfg.Output,
				MaxSize:    cfg.Rotation.MaxSize,
				MaxAge:     cfg.Rotation.MaxAge,
				MaxBackups: cfg.Rotation.MaxBackups,
				LocalTime:  cfg.Rotation.LocalTime,
				Compress:   cfg.Rotation.Compress,
			}
		} else {
			os.MkdirAll(filepath.Dir(cfg.Output), 0755)
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				logger.Default().Warn(err)
			} else {
				out = f
			}
		}
	}
	opts = append(opts, logger.OutputOption(out))

	return logger.NewLogger(opts...)
}
