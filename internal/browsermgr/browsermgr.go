// Package browsermgr owns the single process-wide headless browser instance
// and hands out isolated, profile-randomized browsing contexts to workers
// (spec.md §4.2). It generalizes the teacher's one-shot Chrome exec
// invocation (internal/xresolver/service.go's ChromeRenderer) into a
// long-lived, poolable chromedp allocator, since this spec requires many
// isolated contexts sharing one browser process rather than one process per
// render.
package browsermgr

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Profile is a device fingerprint: user-agent plus a jittered viewport
// (spec.md §4.2 "Device profiles").
type Profile struct {
	Name      string
	UserAgent string
	Width     int
	Height    int
}

// Profiles is the built-in device profile set (spec.md §4.2).
var Profiles = []Profile{
	{Name: "Desktop Chrome", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36", Width: 1366, Height: 768},
	{Name: "Desktop Edge", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0", Width: 1536, Height: 864},
	{Name: "Desktop Firefox", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0", Width: 1440, Height: 900},
	{Name: "Mobile Android", UserAgent: "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36", Width: 393, Height: 851},
}

// stealthInitScript strips the automation signals a bot-defense page
// fingerprints for, mirroring the original Python implementation's
// add_init_script payload (_examples/original_source/services/browser_manager.py).
const stealthInitScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
`

// Context is an isolated browsing session handed to one worker
// (spec.md GLOSSARY "Context").
type Context struct {
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	Profile Profile
}

// Ctx is the context.Context workers pass to navigation calls.
func (c *Context) Ctx() context.Context { return c.ctx }

// Manager owns the single running browser instance plus its launch/relaunch
// protocol (spec.md §4.2).
type Manager struct {
	mu sync.Mutex

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserCancel context.CancelFunc

	running  bool
	headless bool
	proxy    string

	rnd    *rand.Rand
	logger *zap.Logger
}

// New constructs a Manager. The browser is not launched until the first
// GetContext call.
func New(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rnd:    rand.New(rand.NewSource(1)),
		logger: logger,
	}
}

// IsRunning reports whether a browser process is currently live.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetContext returns a fresh isolated browsing context stamped with a
// randomly chosen device profile (spec.md §4.2).
func (m *Manager) GetContext(ctx context.Context, headless bool, proxy string) (*Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureBrowserLocked(headless, proxy); err != nil {
		return nil, fmt.Errorf("render_error: launch browser: %w", err)
	}

	tabCtx, cancel, err := m.newIsolatedContextLocked(ctx)
	if err != nil {
		m.logger.Warn("browser context creation failed, relaunching", zap.Error(err))
		if relaunchErr := m.relaunchLocked(headless, proxy); relaunchErr != nil {
			return nil, fmt.Errorf("render_error: relaunch browser: %w", relaunchErr)
		}
		tabCtx, cancel, err = m.newIsolatedContextLocked(ctx)
		if err != nil {
			return nil, fmt.Errorf("render_error: new context after relaunch: %w", err)
		}
	}

	profile := m.pickProfileLocked()
	if err := applyProfile(tabCtx, profile); err != nil {
		cancel()
		return nil, fmt.Errorf("render_error: apply device profile: %w", err)
	}

	return &Context{ctx: tabCtx, cancel: cancel, Profile: profile}, nil
}

// Release closes the context. Idempotent.
func (c *Context) Release() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})
}

// Close tears down the running browser instance and allocator, used during
// graceful shutdown (spec.md §5 "Cancellation").
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.browserCancel != nil {
		m.browserCancel()
		m.browserCancel = nil
	}
	if m.allocCancel != nil {
		m.allocCancel()
		m.allocCancel = nil
	}
	m.running = false
}

// ensureBrowserLocked relaunches iff headless or proxy differs from the
// running instance (spec.md §4.2 "Launch discipline").
func (m *Manager) ensureBrowserLocked(headless bool, proxy string) error {
	if m.running && m.headless == headless && m.proxy == proxy {
		return nil
	}
	return m.relaunchLocked(headless, proxy)
}

func (m *Manager) relaunchLocked(headless bool, proxy string) error {
	m.closeLocked()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(m.chromedpLogf))

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return err
	}

	m.allocCtx = allocCtx
	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	m.headless = headless
	m.proxy = proxy
	m.running = true
	m.logger.Info("browser (re)started", zap.Bool("headless", headless), zap.Bool("proxy_set", proxy != ""))
	return nil
}

// newIsolatedContextLocked creates a fresh browsing context (Playwright-style
// isolated context) inside the running browser process.
func (m *Manager) newIsolatedContextLocked(ctx context.Context) (context.Context, context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(m.browserCtx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, nil, err
	}
	return tabCtx, cancel, nil
}

func (m *Manager) pickProfileLocked() Profile {
	base := Profiles[m.rnd.Intn(len(Profiles))]
	jitter := func(v int) int { return v + m.rnd.Intn(81) - 40 }
	return Profile{
		Name:      base.Name,
		UserAgent: base.UserAgent,
		Width:     jitter(base.Width),
		Height:    jitter(base.Height),
	}
}

func applyProfile(ctx context.Context, profile Profile) error {
	return chromedp.Run(ctx,
		chromedp.Emulate(deviceFor(profile)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := evaluateOnNewDocument(ctx, stealthInitScript)
			return err
		}),
	)
}

func (m *Manager) chromedpLogf(format string, args ...any) {
	m.logger.Debug(fmt.Sprintf(format, args...))
}
