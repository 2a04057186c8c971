package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	appLog "printcal/internal/log"
	"printcal/internal/model"
)

const defaultPDFTimeout = 30 * time.Second

// Error codes carried by *Error.
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeRenderTimeout  = "RENDER_TIMEOUT"
	ErrCodeRenderFailed   = "RENDER_FAILED"
	ErrCodeCancelled      = "CANCELLED"
)

// Error is returned by PDFRenderer for every failure.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsCode reports whether err is a capture *Error with the given code.
func IsCode(err error, code string) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}

// Options configures the browser used by PDFRenderer.
type Options struct {
	// RemoteURL is the DevTools websocket URL of a running Chrome. When
	// empty a local headless Chrome is launched for each export.
	RemoteURL string

	// NoSandbox runs Chrome without sandbox (required in most containers
	// and when running as root).
	NoSandbox bool

	// Timeout is the default per-request timeout.
	Timeout time.Duration
}

// PDFRequest describes one export. Exactly one of HTML or URL is set.
type PDFRequest struct {
	HTML string
	URL  string

	Paper       model.PaperSize
	Orientation model.Orientation

	// Timeout overrides Options.Timeout when positive.
	Timeout time.Duration
}

// PDFRenderer prints calendar documents to PDF with headless Chrome.
type PDFRenderer struct {
	opts        Options
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewPDFRenderer prepares a browser allocator. With a local Chrome every
// export launches its own browser process, which exits when the export
// returns; with RemoteURL each export opens a tab on the remote browser.
func NewPDFRenderer(opts Options) *PDFRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultPDFTimeout
	}

	r := &PDFRenderer{opts: opts}
	if opts.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
		return r
	}

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if opts.NoSandbox {
		execOpts = append(execOpts, chromedp.NoSandbox)
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
	return r
}

// Close releases the allocator and any browser still running.
func (r *PDFRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// Render prints req to PDF and returns the document bytes.
func (r *PDFRenderer) Render(ctx context.Context, req PDFRequest) ([]byte, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.opts.Timeout
	}
	started := time.Now()

	browserCtx, browserCancel := r.newBrowserContext(ctx)
	defer browserCancel()

	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	params := buildPrintParams(req)
	var pdf []byte

	err := chromedp.Run(runCtx,
		loadTasks(req),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(params.printBackground).
				WithPreferCSSPageSize(params.preferCSSPageSize).
				WithLandscape(params.landscape).
				WithPaperWidth(params.paperWidth).
				WithPaperHeight(params.paperHeight).
				WithMarginTop(0).
				WithMarginRight(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return nil, runError(ctx, runCtx, timeout, err)
	}
	if len(pdf) == 0 {
		return nil, newError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	appLog.Info("pdf rendered",
		"bytes", len(pdf),
		"paper", string(req.Paper),
		"orientation", string(req.Orientation),
		"took", time.Since(started),
	)
	return pdf, nil
}

// runError classifies a failed chromedp run. A cancelled caller context is
// reported as ErrCodeCancelled, an expired deadline as ErrCodeRenderTimeout.
func runError(ctx, runCtx context.Context, timeout time.Duration, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return newError(ErrCodeCancelled, "PDF rendering was cancelled", err)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return newError(ErrCodeRenderTimeout, fmt.Sprintf("PDF rendering timed out after %v", timeout), err)
	}
	appLog.Error("pdf render failed", err)
	return newError(ErrCodeRenderFailed, "chromedp execution failed", err)
}

// CapturePNG takes a preview screenshot with the renderer's browser.
func (r *PDFRenderer) CapturePNG(ctx context.Context, opts CaptureOptions) error {
	if err := opts.normalize(); err != nil {
		return newError(ErrCodeInvalidRequest, "invalid capture options", err)
	}

	browserCtx, cancel := r.newBrowserContext(ctx)
	defer cancel()

	return capturePNG(browserCtx, opts)
}

// newBrowserContext starts a browser (or a remote tab) for one export. It
// is torn down by the returned cancel func or when ctx is done.
func (r *PDFRenderer) newBrowserContext(ctx context.Context) (context.Context, context.CancelFunc) {
	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			appLog.Debug(fmt.Sprintf(format, args...))
		}),
	)
	stop := context.AfterFunc(ctx, browserCancel)
	return browserCtx, func() {
		stop()
		browserCancel()
	}
}

func validateRequest(req *PDFRequest) error {
	hasHTML := strings.TrimSpace(req.HTML) != ""
	hasURL := strings.TrimSpace(req.URL) != ""
	switch {
	case hasHTML && hasURL:
		return newError(ErrCodeInvalidRequest, "only one of HTML or URL may be set", nil)
	case !hasHTML && !hasURL:
		return newError(ErrCodeInvalidRequest, "HTML or URL is required", nil)
	}

	if req.Paper == "" {
		req.Paper = model.PaperA4
	}
	if !req.Paper.IsValid() {
		return newError(ErrCodeInvalidRequest, "invalid paper size: "+string(req.Paper), nil)
	}
	if req.Orientation == "" {
		req.Orientation = model.OrientationLandscape
	}
	if !req.Orientation.IsValid() {
		return newError(ErrCodeInvalidRequest, "invalid orientation: "+string(req.Orientation), nil)
	}
	return nil
}

// loadTasks puts the document into the tab and waits until it is ready
// to print.
func loadTasks(req PDFRequest) chromedp.Tasks {
	if req.URL != "" {
		return chromedp.Tasks{
			chromedp.Navigate(req.URL),
			chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		}
	}
	return chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, req.HTML).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
}

// printParams holds the page.PrintToPDF parameters of one request.
type printParams struct {
	paperWidth        float64
	paperHeight       float64
	landscape         bool
	printBackground   bool
	preferCSSPageSize bool
}

// buildPrintParams converts paper and orientation into Chrome's inch-based
// portrait paper size plus a landscape flag.
func buildPrintParams(req PDFRequest) printParams {
	width, height := req.Paper.Dimensions()
	return printParams{
		paperWidth:        mmToInches(width),
		paperHeight:       mmToInches(height),
		landscape:         req.Orientation == model.OrientationLandscape,
		printBackground:   true,
		preferCSSPageSize: true,
	}
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
