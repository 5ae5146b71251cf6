package hudcalc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

// DefaultQueryTimeout bounds one tank's query including page load, form
// interaction and screenshot capture.
const DefaultQueryTimeout = 45 * time.Second

// BrowserClient implements Client with a headless Chrome session.
// Requires Chrome/Chromium to be installed on the system.
type BrowserClient struct {
	url     string
	timeout time.Duration
	verbose bool
}

// Option configures a BrowserClient.
type Option func(*BrowserClient)

// WithURL overrides the calculator URL (used by tests against a local page).
func WithURL(url string) Option {
	return func(c *BrowserClient) { c.url = url }
}

// WithTimeout overrides the per-query wall-clock budget.
func WithTimeout(d time.Duration) Option {
	return func(c *BrowserClient) { c.timeout = d }
}

// WithVerbose enables progress logging to stdout.
func WithVerbose(verbose bool) Option {
	return func(c *BrowserClient) { c.verbose = verbose }
}

// NewBrowserClient builds a calculator client with sane defaults.
func NewBrowserClient(opts ...Option) *BrowserClient {
	c := &BrowserClient{
		url:     DefaultCalculatorURL,
		timeout: DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fillFormJS drives the calculator form. The checkbox groups mirror the
// calculator's wizard: above ground, pressurized, cryogenic, diked, then the
// volume and optional dike dimensions.
const fillFormJS = `
(function(tank) {
	const clickCheckbox = (partialId, value) => {
		const box = document.querySelector('input[type="checkbox"][id*="' + partialId + '"][value="' + value + '"]');
		if (!box) return false;
		box.checked = true;
		box.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	};

	if (!clickCheckbox('chkAboveGround', 'Yes')) return 'chkAboveGround';
	if (!clickCheckbox('chkPressurized', tank.pressurized ? 'Yes' : 'No')) return 'chkPressurized';
	if (tank.pressurized) {
		clickCheckbox('chkCryogen', 'Yes');
	}
	if (!clickCheckbox('chkDiked', tank.hasDike ? 'Yes' : 'No')) return 'chkDiked';

	const volume = document.querySelector('input[name="volume"]');
	if (!volume) return 'volume input';
	volume.disabled = false;
	volume.value = tank.volume;
	volume.dispatchEvent(new Event('input', { bubbles: true }));

	if (tank.hasDike && tank.dikeLength && tank.dikeWidth) {
		const length = document.querySelector('input[name="dikedLength"]');
		const width = document.querySelector('input[name="dikedWidth"]');
		if (length) { length.disabled = false; length.value = tank.dikeLength; }
		if (width) { width.disabled = false; width.value = tank.dikeWidth; }
	}
	return '';
})(%s)
`

const clickCalculateJS = `
(function() {
	const buttons = document.querySelectorAll('button, input[type="button"], input[type="submit"]');
	for (const btn of buttons) {
		const label = (btn.value || btn.textContent || '');
		if (label.includes('Calculate')) {
			btn.click();
			return true;
		}
	}
	return false;
})()
`

// Query implements Client.
func (c *BrowserClient) Query(ctx context.Context, tank *types.Tank, screenshotDir string) (*types.ASDResult, error) {
	if tank.VolumeGallons == nil {
		return nil, fmt.Errorf("tank %s has no resolved volume", tank.ID)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, c.timeout)
	defer cancelTimeout()

	tankJSON := fmt.Sprintf(
		`{"volume": %.0f, "pressurized": %t, "hasDike": %t, "dikeLength": %s, "dikeWidth": %s}`,
		*tank.VolumeGallons, tank.Pressurized, tank.HasDike,
		jsNumber(tank.DikeLengthFeet), jsNumber(tank.DikeWidthFeet),
	)

	var missing string
	var clicked bool
	var html string
	var screenshot []byte

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(c.url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(fmt.Sprintf(fillFormJS, tankJSON), &missing),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if missing != "" {
				return &PageStructureError{Missing: missing}
			}
			return nil
		}),
		chromedp.Evaluate(clickCalculateJS, &clicked),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !clicked {
				return &PageStructureError{Missing: "calculate button"}
			}
			return nil
		}),
		// Give the page's own script time to populate the result fields.
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.OuterHTML("html", &html),
		chromedp.FullScreenshot(&screenshot, 90),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("tank %s: %w", tank.ID, ErrTimeout)
		}
		var pse *PageStructureError
		if errors.As(err, &pse) {
			return nil, fmt.Errorf("tank %s: %w", tank.ID, pse)
		}
		return nil, fmt.Errorf("tank %s: calculator query failed: %w", tank.ID, err)
	}

	result, err := parseResults(html)
	if err != nil {
		return nil, fmt.Errorf("tank %s: %w", tank.ID, err)
	}

	// The screenshot is the audit trail; without it the values are unusable.
	if err := os.MkdirAll(screenshotDir, 0o755); err != nil {
		return nil, fmt.Errorf("tank %s: failed to create screenshot dir: %w", tank.ID, err)
	}
	screenshotPath := filepath.Join(screenshotDir, screenshotName(tank))
	if err := os.WriteFile(screenshotPath, screenshot, 0o644); err != nil {
		return nil, fmt.Errorf("tank %s: failed to write screenshot: %w", tank.ID, err)
	}
	result.ScreenshotPath = screenshotPath

	return result, nil
}

func jsNumber(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.1f", *v)
}

func screenshotName(tank *types.Tank) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ', r == '/':
			return '-'
		default:
			return -1
		}
	}, tank.ID)
	volume := 0.0
	if tank.VolumeGallons != nil {
		volume = *tank.VolumeGallons
	}
	return fmt.Sprintf("tank-%s-%.0fgal.png", id, volume)
}
