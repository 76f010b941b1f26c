package features

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

type streamingContext struct {
	*sharedContext
}

func (c *streamingContext) aBuildToolThatPrints(doc *godog.DocString) error {
	script := "cat <<'EOF'\n" + doc.Content + "\nEOF\nexit 0\n"
	return c.writeTool(script)
}

func (c *streamingContext) aBuildToolThatPrintsAndExits(code int, doc *godog.DocString) error {
	script := fmt.Sprintf("cat <<'EOF'\n%s\nEOF\nexit %d\n", doc.Content, code)
	return c.writeTool(script)
}

func (c *streamingContext) aBuildToolThatFailsWith(code int) error {
	return c.writeTool(fmt.Sprintf("exit %d\n", code))
}

func (c *streamingContext) iRunTheCommand(verb string) error {
	return c.invoke(verb)
}

func (c *streamingContext) theCommandShouldSucceed() error {
	if c.runErr != nil {
		return fmt.Errorf("expected success, got %v\nlog:\n%s", c.runErr, c.logBuf.String())
	}
	return nil
}

func (c *streamingContext) theCommandShouldFailWithExitCode(code int) error {
	if c.runErr == nil {
		return fmt.Errorf("expected failure, command succeeded\nlog:\n%s", c.logBuf.String())
	}
	if c.result.ExitCode != code {
		return fmt.Errorf("exit code %d, want %d", c.result.ExitCode, code)
	}
	return nil
}

func (c *streamingContext) theLogShouldContain(text string) error {
	if !strings.Contains(c.logBuf.String(), text) {
		return fmt.Errorf("log does not contain %q:\n%s", text, c.logBuf.String())
	}
	return nil
}

func (c *streamingContext) theIndicatorShouldHaveReached(id string, percent int) error {
	s := c.factory.surface(id)
	if s == nil {
		return fmt.Errorf("no indicator %q was created", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(s.percent) != percent {
		return fmt.Errorf("indicator %q at %v percent, want %d", id, s.percent, percent)
	}
	return nil
}

func (c *streamingContext) noProgressIndicatorsShouldRemainLive() error {
	if live := c.factory.liveCount(); live != 0 {
		return fmt.Errorf("%d indicators still live", live)
	}
	return nil
}

func (c *streamingContext) theDiagnosticsShouldBeExactly(path, message string) error {
	entries := c.coll.Get(path)
	if len(entries) != 1 {
		return fmt.Errorf("%d entries for %s, want 1", len(entries), path)
	}
	if entries[0].Message != message {
		return fmt.Errorf("entry message %q, want %q", entries[0].Message, message)
	}
	return nil
}

func InitializeStreamingScenario(sc *godog.ScenarioContext, shared *sharedContext) {
	c := &streamingContext{sharedContext: shared}

	sc.Step(`^a build tool that prints:$`, c.aBuildToolThatPrints)
	sc.Step(`^a build tool that prints the following and exits with code (\d+):$`, c.aBuildToolThatPrintsAndExits)
	sc.Step(`^a build tool that fails with exit code (\d+)$`, c.aBuildToolThatFailsWith)
	sc.Step(`^I run the "([^"]*)" command$`, c.iRunTheCommand)
	sc.Step(`^the command should succeed$`, c.theCommandShouldSucceed)
	sc.Step(`^the command should fail with exit code (-?\d+)$`, c.theCommandShouldFailWithExitCode)
	sc.Step(`^the log should contain "([^"]*)"$`, c.theLogShouldContain)
	sc.Step(`^the "([^"]*)" indicator should have reached (\d+) percent$`, c.theIndicatorShouldHaveReached)
	sc.Step(`^no progress indicators should remain live$`, c.noProgressIndicatorsShouldRemainLive)
	sc.Step(`^the diagnostics for "([^"]*)" should be exactly "([^"]*)"$`, c.theDiagnosticsShouldBeExactly)
}
