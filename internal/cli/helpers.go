package cli

import (
	"fmt"

	"github.com/glorpus-work/distboot/pkg/config"
)

// These variables will be set by the main package
var (
	ProjectDir *string
	UserHome   *string
	LogLevel   *string
)

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// loadConfig loads the wrapper and settings for the current project and
// configures logging from them.
func loadConfig() (*config.Loaded, error) {
	loaded, err := config.Load(config.LoadOptions{
		ProjectDir: flagValue(ProjectDir),
		UserHome:   flagValue(UserHome),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	initLogging(flagValue(LogLevel), loaded.Settings)
	return loaded, nil
}
