// Package browser drives a sandboxed, network-disabled headless
// browser for HTML and email rendering. One Browser is a long-lived
// process-wide resource owned by a single worker; concurrent use
// against the same instance is not supported.
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Logger is injected from main at startup.
var Logger *slog.Logger

// ErrBrowserGone reports that the shared browser process died out from
// under us. The invocation cannot be completed by this worker state;
// callers should retry from scratch.
var ErrBrowserGone = errors.New("browser process is gone")

// Browser wraps a headless browser process. Each render runs in a
// fresh tab that is always closed on exit, so the browser returns to
// a single-window state no matter how the render ended.
type Browser struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New starts the browser process with networking forced offline.
func New(execPath string) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, goOffline()); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser offline: %w", err)
	}

	return &Browser{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser process down.
func (b *Browser) Close() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// PrintToPDF loads an HTML byte stream in an isolated tab and prints
// it to PDF, bounded to pages 1..maxPages.
func (b *Browser) PrintToPDF(ctx context.Context, htmlData []byte, maxPages int) ([]byte, error) {
	var pdfData []byte
	err := b.withTab(ctx, htmlData, chromedp.ActionFunc(func(tabCtx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPageRanges(fmt.Sprintf("1-%d", maxPages)).
			WithPrintBackground(true).
			Do(tabCtx)
		if err != nil {
			return err
		}
		pdfData = data
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("printing to pdf: %w", err)
	}
	return pdfData, nil
}

// Screenshot loads an HTML byte stream in an isolated tab and captures
// the full rendered page.
func (b *Browser) Screenshot(ctx context.Context, htmlData []byte) ([]byte, error) {
	var shot []byte
	err := b.withTab(ctx, htmlData, chromedp.FullScreenshot(&shot, 90))
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return shot, nil
}

// withTab opens a new tab, loads the content from a base64 data URI
// (never a filesystem path, so script sees no real path), dismisses
// any JavaScript dialog that opens, runs the action, and closes the
// tab on every exit path.
func (b *Browser) withTab(ctx context.Context, htmlData []byte, action chromedp.Action) error {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	defer tabCancel() // guarantees the tab is closed, restoring a single window

	// Honor the caller's deadline on the tab.
	if deadline, ok := ctx.Deadline(); ok {
		var deadlineCancel context.CancelFunc
		tabCtx, deadlineCancel = context.WithDeadline(tabCtx, deadline)
		defer deadlineCancel()
	}

	// Dialogs block printing indefinitely; dismiss each one as it
	// appears until none remain.
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() {
				if err := chromedp.Run(tabCtx, page.HandleJavaScriptDialog(false)); err != nil {
					Logger.Warn("dismissing javascript dialog failed", "error", err)
				}
			}()
		}
	})

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(htmlData)
	err := chromedp.Run(tabCtx,
		goOffline(),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		action,
	)
	if err != nil && b.browserCtx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrBrowserGone, err)
	}
	return err
}

// goOffline disables all network access via emulated network
// conditions. Data URIs keep working; remote fetches fail.
func goOffline() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return err
		}
		return network.EmulateNetworkConditions(true, 0, 0, 0).Do(ctx)
	})
}
