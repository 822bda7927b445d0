package scraper

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserUserAgent is sent by the headless browser. Several venue calendars
// block the default HeadlessChrome agent.
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultSettle is how long a rendered page is left to run scripts before capture
const DefaultSettle = 2 * time.Second

// BrowserFetcher renders a page in headless Chrome and returns the resulting DOM
type BrowserFetcher struct {
	ChromeBin string
	UserAgent string
	WaitFor   string
	Settle    time.Duration
}

// NewBrowserFetcher creates a fetcher. An empty chromeBin searches the usual install paths.
func NewBrowserFetcher(chromeBin string) *BrowserFetcher {
	return &BrowserFetcher{
		ChromeBin: chromeBin,
		UserAgent: BrowserUserAgent,
		Settle:    DefaultSettle,
	}
}

// WithWait returns a copy that waits for selector and then settles for d
func (f *BrowserFetcher) WithWait(selector string, d time.Duration) *BrowserFetcher {
	c := *f
	c.WaitFor = selector
	if d > 0 {
		c.Settle = d
	}
	return &c
}

// Fetch launches a browser for this page only. The caller's context bounds the whole render.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(f.UserAgent),
	)
	if bin := findChromeBinary(f.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if f.WaitFor != "" {
		actions = append(actions, chromedp.WaitVisible(f.WaitFor, chromedp.ByQuery))
	}

	var html string
	actions = append(actions,
		chromedp.Sleep(f.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}

	return io.NopCloser(strings.NewReader(html)), nil
}

func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
