package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"inbox-rpa/internal/config"
)

// settleDelay gives the page's client-side handler time to complete after a
// successful click before the session is torn down.
const settleDelay = 2 * time.Second

// Result reports the outcome of one automation run.
type Result struct {
	Success  bool
	Reason   string
	Duration time.Duration
}

// Runner is the browser automation capability consumed by the orchestrator.
type Runner interface {
	Execute(ctx context.Context, url string) Result
	CleanCache() error
}

// Executor drives a headless browser through the fixed
// navigate/wait/click/teardown protocol. Each Execute call owns a fresh
// browser session; no session survives the call.
type Executor struct {
	cfg config.AutomationConfig
}

// NewExecutor creates an executor with the configured selector and timeout.
func NewExecutor(cfg config.AutomationConfig) *Executor {
	return &Executor{cfg: cfg}
}

// Execute opens url, waits for the configured selector to become clickable
// within the timeout, clicks it, and tears the session down on every path.
func (e *Executor) Execute(ctx context.Context, url string) Result {
	start := time.Now()
	result := e.run(ctx, url)
	result.Duration = time.Since(start)

	if result.Success {
		logrus.Infof("Click completed on %s in %v", url, result.Duration)
	} else {
		logrus.Errorf("Automation failed on %s: %s", url, result.Reason)
	}
	return result
}

func (e *Executor) run(ctx context.Context, url string) Result {
	l := launcher.New().Headless(true).NoSandbox(true)
	if e.cfg.CacheDir != "" {
		l = l.UserDataDir(filepath.Join(e.cfg.CacheDir, "profile"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return Result{Reason: fmt.Sprintf("failed to launch browser: %v", err)}
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return Result{Reason: fmt.Sprintf("failed to connect to browser: %v", err)}
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logrus.Warnf("Failed to close browser: %v", err)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return Result{Reason: fmt.Sprintf("failed to open page: %v", err)}
	}

	timeout := e.cfg.Timeout()
	nav := page.Timeout(timeout)
	if err := nav.Navigate(url); err != nil {
		return Result{Reason: navigationReason(err)}
	}
	if err := nav.WaitLoad(); err != nil {
		return Result{Reason: navigationReason(err)}
	}
	logrus.Infof("Page loaded: %s", url)

	el, err := page.Timeout(timeout).Element(e.cfg.ButtonSelector)
	if err != nil {
		return Result{Reason: elementReason(err, e.cfg.ButtonSelector)}
	}
	if err := el.Timeout(timeout).WaitVisible(); err != nil {
		return Result{Reason: elementReason(err, e.cfg.ButtonSelector)}
	}
	logrus.Infof("Button found with selector: %s", e.cfg.ButtonSelector)

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return Result{Reason: fmt.Sprintf("click failed: %v", err)}
	}

	// Let the triggered client-side action finish before teardown.
	time.Sleep(settleDelay)

	return Result{Success: true}
}

func navigationReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "navigation/element timeout"
	}
	return fmt.Sprintf("navigation failed: %v", err)
}

func elementReason(err error, selector string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "element timeout"
	}
	return fmt.Sprintf("element %q not clickable: %v", selector, err)
}

// CleanCache removes the browser's on-disk cache and profile directories. Run
// by the weekly maintenance kind.
func (e *Executor) CleanCache() error {
	root := e.cacheRoot()

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read browser cache dir: %w", err)
	}

	var removed int
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}

	logrus.Infof("Removed %d browser cache entries from %s", removed, root)
	return nil
}

// cacheRoot is the configured cache directory, falling back to the launcher's
// default temp location.
func (e *Executor) cacheRoot() string {
	if e.cfg.CacheDir != "" {
		return e.cfg.CacheDir
	}
	return filepath.Join(os.TempDir(), "rod")
}
