// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ChromeOptions configures the headless Chrome engine
type ChromeOptions struct {
	Headless   bool
	Width      int
	Height     int
	ChromePath string
	UserAgent  string
	Proxy      string

	// OpTimeout bounds a single element read so a detached node cannot hang
	// the extraction of one field.
	OpTimeout time.Duration
}

// ChromeEngine renders pages in headless Chrome over the DevTools protocol
type ChromeEngine struct {
	opts ChromeOptions
}

// NewChromeEngine creates a ChromeEngine, filling zero values with defaults
func NewChromeEngine(opts ChromeOptions) *ChromeEngine {
	if opts.Width <= 0 {
		opts.Width = 1200
	}
	if opts.Height <= 0 {
		opts.Height = 900
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 5 * time.Second
	}
	return &ChromeEngine{opts: opts}
}

// Name returns the name of this engine
func (e *ChromeEngine) Name() string {
	return "chrome"
}

// allocatorOptions returns the fixed launch configuration
func (e *ChromeEngine) allocatorOptions() []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		// Docker/CI: no user namespaces and a tiny /dev/shm
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(e.opts.Width, e.opts.Height),
	}

	if path := FindChrome(e.opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}

	if e.opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	if e.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(e.opts.UserAgent))
	}
	if e.opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(e.opts.Proxy))
	}

	return allocOpts
}

// Launch starts a Chrome process and opens one tab in it
func (e *ChromeEngine) Launch(ctx context.Context) (Page, error) {
	start := time.Now()

	// The browser must outlive the launch context, so it hangs off Background.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), e.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug().Msgf("chromedp: "+format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Debug().Msgf("chromedp error: "+format, args...)
		}),
	)

	page := &chromePage{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		opTimeout:   e.opts.OpTimeout,
	}

	// The first Run allocates the browser and ties its lifetime to the
	// context it is given, so it must be the tab context itself.
	if err := chromedp.Run(tabCtx); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	runCtx, cancel := page.bind(ctx, 0)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate("about:blank")); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	log.Debug().
		Bool("headless", e.opts.Headless).
		Int("width", e.opts.Width).
		Int("height", e.opts.Height).
		Dur("elapsed", time.Since(start)).
		Msg("Chrome launched")

	return page, nil
}

// chromePage is a single chromedp tab
type chromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opTimeout   time.Duration
}

// bind derives a context from the tab that also ends when ctx ends. chromedp
// only accepts contexts descending from the tab; cancelling a derived one
// aborts the action without closing the tab.
func (p *chromePage) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx := p.ctx
	var cancels []context.CancelFunc

	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		cancels = append(cancels, cancel)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		cancels = append(cancels, cancel)
	}

	runCtx, cancel := context.WithCancel(runCtx)
	cancels = append(cancels, cancel)
	stop := context.AfterFunc(ctx, cancel)

	return runCtx, func() {
		stop()
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}
}

// Navigate loads url and waits for the load event
func (p *chromePage) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := p.bind(ctx, 0)
	defer cancel()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return NewError(CodeNavigation, "chromedp navigation failed", err).WithURL(url)
	}
	if resp != nil && resp.Status >= 400 {
		return NewError(CodeNavigation, "unexpected response status", nil).
			WithURL(url).
			WithStatus(int(resp.Status))
	}
	return nil
}

// QueryAll returns the nodes matching selector without waiting for them
func (p *chromePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	runCtx, cancel := p.bind(ctx, p.opTimeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &chromeElement{page: p, node: node})
	}
	return elements, nil
}

// Alive reports whether the tab (and so the browser) is still running
func (p *chromePage) Alive() bool {
	return p.ctx.Err() == nil
}

// Close cancels the tab and then the browser process
func (p *chromePage) Close() error {
	p.cancel()
	p.allocCancel()
	return nil
}

// chromeElement reads a node live so detached nodes surface as errors
type chromeElement struct {
	page *chromePage
	node *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	runCtx, cancel := e.page.bind(ctx, e.page.opTimeout)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	runCtx, cancel := e.page.bind(ctx, e.page.opTimeout)
	defer cancel()

	var (
		value string
		ok    bool
	)
	if err := chromedp.Run(runCtx, chromedp.AttributeValue([]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, NewError(CodeAttributeRead, fmt.Sprintf("reading %q", name), err)
	}
	return value, ok, nil
}
