package features

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Garcia6l20/amake-go/internal/config"
	"github.com/Garcia6l20/amake-go/internal/console"
	"github.com/Garcia6l20/amake-go/internal/diag"
	"github.com/Garcia6l20/amake-go/internal/executor"
	"github.com/Garcia6l20/amake-go/internal/progress"
)

// sharedContext holds ALL state for a scenario - used by all step definitions
type sharedContext struct {
	tempDir  string
	toolPath string
	settings config.Settings

	logBuf  bytes.Buffer
	log     *console.Channel
	factory *surfaceRecorder
	coll    *diag.MemoryCollection

	result executor.Result
	runErr error

	cancel context.CancelFunc
}

func newSharedContext() *sharedContext {
	c := &sharedContext{
		factory: newSurfaceRecorder(),
		coll:    diag.NewMemoryCollection(),
	}
	c.log = console.NewChannel(&c.logBuf, console.NewColors(false), console.LevelDebug)
	return c
}

// writeTool installs a shell script standing in for the build tool and
// points the settings tool prefix at it.
func (c *sharedContext) writeTool(script string) error {
	if c.tempDir == "" {
		dir, err := os.MkdirTemp("", "amake-features-")
		if err != nil {
			return err
		}
		c.tempDir = dir
	}

	c.toolPath = filepath.Join(c.tempDir, "amake-stub.sh")
	if err := os.WriteFile(c.toolPath, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		return err
	}

	c.settings = config.MergeWithDefaults(&config.Settings{
		Tool: []string{"/bin/sh", c.toolPath},
	})
	return nil
}

// invoke runs one verb through the executor against the stub tool.
func (c *sharedContext) invoke(verb string) error {
	if c.toolPath == "" {
		return fmt.Errorf("no stub tool installed")
	}

	ctx := context.Background()
	if c.cancel == nil {
		ctx, c.cancel = context.WithCancel(ctx)
	}

	name, args := c.settings.Command(verb)
	exe := executor.New(c.log, c.factory)
	c.result, c.runErr = exe.Run(ctx, name, args, executor.Options{
		Label:       verb,
		Cancellable: true,
		Diagnostics: diag.NewSink(c.coll, c.settings.Diagnostics.Include),
	})
	return nil
}

func (c *sharedContext) cleanup() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}

// surfaceRecorder implements progress.Factory and remembers every surface
// it handed out, for lifecycle assertions.
type surfaceRecorder struct {
	mu       sync.Mutex
	surfaces map[string]*recordedSurface
}

type recordedSurface struct {
	mu      sync.Mutex
	percent float64
	done    bool
}

func newSurfaceRecorder() *surfaceRecorder {
	return &surfaceRecorder{surfaces: map[string]*recordedSurface{}}
}

func (r *surfaceRecorder) NewSurface(id string) progress.Surface {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &recordedSurface{}
	r.surfaces[id] = s
	return s
}

func (r *surfaceRecorder) surface(id string) *recordedSurface {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surfaces[id]
}

func (r *surfaceRecorder) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := 0
	for _, s := range r.surfaces {
		s.mu.Lock()
		if !s.done {
			live++
		}
		s.mu.Unlock()
	}
	return live
}

func (s *recordedSurface) Report(message string, increment float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percent += increment
}

func (s *recordedSurface) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}
