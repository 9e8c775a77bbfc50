package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/config"
)

type logdyWriter struct {
	logger logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (n int, err error) {
	// Forward raw JSON line to the Logdy UI
	w.logger.LogString(string(p))
	return len(p), nil
}

// StartLogdy starts the embedded Logdy web UI and returns a writer to tee logs, plus the UI URL
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	if cfg.LogdyPort <= 0 {
		return nil, "", fmt.Errorf("invalid logdy port %d", cfg.LogdyPort)
	}
	portStr := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: portStr,
	}, nil)

	url := fmt.Sprintf("http://%s:%s", cfg.LogdyHost, portStr)
	return &logdyWriter{logger: ld}, url, nil
}

// Setup configures the global zerolog logger: console output on stderr,
// the configured level, and a Logdy tee when enabled.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	logdyURL := ""
	if cfg.LogdyEnabled {
		w, url, err := StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy disabled")
		} else {
			out = io.MultiWriter(out, w)
			logdyURL = url
		}
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if logdyURL != "" {
		log.Info().Str("url", logdyURL).Msg("Logdy UI available")
	}
}
