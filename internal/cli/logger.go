package cli

import (
	"strings"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/config"
)

// initLogging applies the configured level and format. A non-empty
// levelOverride from the command line wins over the settings file.
func initLogging(levelOverride string, settings config.Settings) {
	level := settings.LogLevel
	if levelOverride != "" {
		level = levelOverride
	}
	format := logger.FormatText
	if strings.EqualFold(settings.OutputFormat, string(logger.FormatJSON)) {
		format = logger.FormatJSON
	}
	logger.InitLogger(level, format)
}
