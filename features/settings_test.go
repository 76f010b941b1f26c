package features

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/Garcia6l20/amake-go/internal/config"
)

type settingsContext struct {
	*sharedContext
	loaded  *config.Settings
	loadErr error
}

func (c *settingsContext) aSettingsFileContaining(doc *godog.DocString) error {
	dir, err := os.MkdirTemp("", "amake-settings-")
	if err != nil {
		return err
	}
	c.tempDir = dir

	path := filepath.Join(dir, config.DefaultFile)
	if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil {
		return err
	}

	c.loaded, c.loadErr = config.Load(path)
	return nil
}

func (c *settingsContext) theResolvedCommandShouldBe(verb, want string) error {
	if c.loadErr != nil {
		return fmt.Errorf("settings failed to load: %v", c.loadErr)
	}
	merged := config.MergeWithDefaults(c.loaded)

	name, args := merged.Command(verb)
	got := strings.Join(append([]string{name}, args...), " ")
	if got != want {
		return fmt.Errorf("resolved command %q, want %q", got, want)
	}
	return nil
}

func (c *settingsContext) loadingShouldFailMentioning(field string) error {
	if c.loadErr == nil {
		return fmt.Errorf("expected load failure, got settings %+v", c.loaded)
	}
	if !strings.Contains(c.loadErr.Error(), field) {
		return fmt.Errorf("error %q does not mention %q", c.loadErr, field)
	}
	return nil
}

func InitializeSettingsScenario(sc *godog.ScenarioContext, shared *sharedContext) {
	c := &settingsContext{sharedContext: shared}

	sc.Step(`^a settings file containing:$`, c.aSettingsFileContaining)
	sc.Step(`^the resolved command for "([^"]*)" should be "([^"]*)"$`, c.theResolvedCommandShouldBe)
	sc.Step(`^loading the settings should fail mentioning "([^"]*)"$`, c.loadingShouldFailMentioning)
}
