package erp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"dpt/internal/config"
	apperrors "dpt/internal/errors"
	"dpt/internal/files"
	"dpt/internal/infrastructure"
)

const (
	loginAttempts = 3
	loginWait     = 3 * time.Second
	stepDelay     = 500 * time.Millisecond
	// downloadWait bounds a single export; open ended queries are slower.
	downloadWait      = 30 * time.Second
	sinceDownloadWait = 2 * time.Minute
)

// Download is a finished Job and where its export was stored.
type Download struct {
	Job  Job    `json:"job"`
	Path string `json:"path"`
}

// Client drives the ERP web client.
type Client struct {
	cfg    config.JDEConfig
	loc    config.LocatorConfig
	dir    string
	files  *files.Manager
	logger *slog.Logger
}

// NewClient creates a client that stores exports in paths.DownloadsDir.
func NewClient(cfg config.JDEConfig, loc config.LocatorConfig, paths *config.Paths, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		loc:    loc,
		dir:    paths.DownloadsDir,
		files:  files.NewManager(paths),
		logger: infrastructure.WithComponent(logger, "erp"),
	}
}

// AllocatorOptions are the browser flags for this client.
func (c *Client) AllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", c.cfg.Headless))
	if c.cfg.BrowserPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.BrowserPath))
	}
	return opts
}

// Run logs in and executes jobs in order. It stops at the first failed job
// and returns the downloads finished so far.
func (c *Client) Run(ctx context.Context, jobs []Job) ([]Download, error) {
	if c.cfg.Address == "" {
		return nil, apperrors.NewConfigError("jde.address")
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return nil, apperrors.NewIOError("failed to create downloads directory", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.AllocatorOptions()...)
	defer cancelAlloc()

	bctx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	watcher := watchDownloads(bctx)
	if err := chromedp.Run(bctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(c.dir).
			WithEventsEnabled(true),
	); err != nil {
		return nil, apperrors.NewNetworkError("failed to start browser", err)
	}

	if err := c.login(bctx); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "login success")

	var out []Download
	for _, job := range jobs {
		start := time.Now()
		c.logger.InfoContext(ctx, "start downloading", slog.String("job", job.String()))

		d, err := c.download(bctx, watcher, job)
		if err != nil {
			return out, apperrors.NewNetworkError(fmt.Sprintf("download %s", job), err)
		}
		out = append(out, d)

		c.logger.InfoContext(ctx, "finish downloading",
			slog.String("job", job.String()),
			slog.String("path", d.Path),
			slog.Duration("duration", time.Since(start)))
	}
	return out, nil
}

// login submits the credentials and reloads until the favourites menu shows.
func (c *Client) login(ctx context.Context) error {
	submit := chromedp.Tasks{
		chromedp.WaitVisible(c.loc.UsernameField, chromedp.ByQuery),
		chromedp.SendKeys(c.loc.UsernameField, c.cfg.Username, chromedp.ByQuery),
		chromedp.SendKeys(c.loc.PasswordField, c.cfg.Password, chromedp.ByQuery),
		chromedp.Click(c.loc.LoginBtn, chromedp.ByQuery),
	}

	if err := chromedp.Run(ctx, chromedp.Navigate(c.cfg.Address), submit); err != nil {
		return apperrors.NewNetworkError("failed to submit login", err)
	}

	for attempt := 1; ; attempt++ {
		wctx, cancel := context.WithTimeout(ctx, loginWait)
		err := chromedp.Run(wctx, chromedp.WaitVisible(c.loc.FavBtn, chromedp.ByQuery))
		cancel()
		if err == nil {
			return nil
		}
		if attempt == loginAttempts || ctx.Err() != nil {
			return apperrors.NewNetworkError("login did not complete", err)
		}

		c.logger.WarnContext(ctx, "login page not ready, reloading", slog.Int("attempt", attempt))
		if err := chromedp.Run(ctx, chromedp.Reload(), submit); err != nil {
			return apperrors.NewNetworkError("failed to submit login", err)
		}
	}
}

// download runs job through the ST favourite and stores the export.
func (c *Client) download(ctx context.Context, w *downloadWatcher, job Job) (Download, error) {
	var frames []*cdp.Node
	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(c.loc.FavBtn, chromedp.ByQuery),
		chromedp.Click(c.loc.FavBtn, chromedp.ByQuery),
		chromedp.WaitVisible(c.loc.FavItem, chromedp.ByQuery),
		chromedp.Click(c.loc.FavItem, chromedp.ByQuery),
		chromedp.Nodes(c.loc.MainFrame, &frames, chromedp.ByQuery),
	); err != nil {
		return Download{}, err
	}
	if len(frames) == 0 {
		return Download{}, apperrors.NewNotFoundError(fmt.Sprintf("frame `%s`", c.loc.MainFrame))
	}
	frame := chromedp.FromNode(frames[0])

	fill := func(sel, value string) chromedp.Action {
		return chromedp.Tasks{
			chromedp.WaitVisible(sel, chromedp.ByQuery, frame),
			chromedp.Clear(sel, chromedp.ByQuery, frame),
			chromedp.SendKeys(sel, value, chromedp.ByQuery, frame),
		}
	}
	click := func(sel string) chromedp.Action {
		return chromedp.Tasks{
			chromedp.WaitVisible(sel, chromedp.ByQuery, frame),
			chromedp.Sleep(stepDelay),
			chromedp.Click(sel, chromedp.ByQuery, frame),
		}
	}

	if err := chromedp.Run(ctx,
		fill(c.loc.STOrderTypeField, "*"),
		fill(c.loc.STCompanyField, c.cfg.Company),
		fill(c.loc.STRepoField, job.Repo),
		fill(c.loc.STExpectedDateField, job.Query()),
		click(c.loc.QueryBtn),
		click(c.loc.GridDownBtn),
		click(c.loc.ExportDataBtn),
		click(c.loc.DownloadBtn),
	); err != nil {
		return Download{}, err
	}

	wait := downloadWait
	if job.Since {
		wait = sinceDownloadWait
	}
	done, err := w.wait(ctx, wait)
	if err != nil {
		return Download{}, err
	}

	if err := chromedp.Run(ctx, click(c.loc.CloseBtn)); err != nil {
		return Download{}, err
	}

	ext := filepath.Ext(done.name)
	if ext == "" {
		ext = ".xlsx"
	}
	dst := filepath.Join(c.dir, job.FileName(ext))
	if c.files.FileExists(dst) {
		c.logger.InfoContext(ctx, "replacing earlier download", slog.String("path", dst))
	}
	if err := c.files.MoveFile(filepath.Join(c.dir, done.guid), dst); err != nil {
		return Download{}, err
	}
	return Download{Job: job, Path: dst}, nil
}

type completedDownload struct {
	guid string
	name string
}

// downloadWatcher tracks browser download events. With AllowAndName the
// browser stores each file under its GUID.
type downloadWatcher struct {
	mu    sync.Mutex
	names map[string]string
	done  chan completedDownload
}

func watchDownloads(ctx context.Context) *downloadWatcher {
	w := &downloadWatcher{
		names: make(map[string]string),
		done:  make(chan completedDownload, 8),
	}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *browser.EventDownloadWillBegin:
			w.mu.Lock()
			w.names[e.GUID] = e.SuggestedFilename
			w.mu.Unlock()
		case *browser.EventDownloadProgress:
			if e.State != browser.DownloadProgressStateCompleted {
				return
			}
			w.mu.Lock()
			name := w.names[e.GUID]
			delete(w.names, e.GUID)
			w.mu.Unlock()
			select {
			case w.done <- completedDownload{guid: e.GUID, name: name}:
			default:
			}
		}
	})
	return w
}

func (w *downloadWatcher) wait(ctx context.Context, timeout time.Duration) (completedDownload, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-w.done:
		return d, nil
	case <-timer.C:
		return completedDownload{}, fmt.Errorf("export not downloaded within %s", timeout)
	case <-ctx.Done():
		return completedDownload{}, ctx.Err()
	}
}
