package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/jqinstall/jq-install/internal/binary"
	"github.com/jqinstall/jq-install/internal/config"
)

// logProgress reports downloads as "Downloaded: <p>%" log lines, or as a
// byte count when the server sent no length.
func logProgress(logger config.Logger) binary.ProgressFunc {
	return func(p binary.Progress) {
		if p.Total <= 0 && !p.Done {
			logger.Info(fmt.Sprintf("Downloaded: %d bytes", p.Downloaded), "file", path.Base(p.URL))
			return
		}
		logger.Info("Downloaded: "+binary.FormatPercent(p.Percent())+"%", "file", path.Base(p.URL))
	}
}

// barReporter renders one progress bar per download.
type barReporter struct {
	w      io.Writer
	logger config.Logger
	bar    *progressbar.ProgressBar
	url    string
}

func newBarReporter(w io.Writer, logger config.Logger) *barReporter {
	return &barReporter{w: w, logger: logger}
}

func (r *barReporter) report(p binary.Progress) {
	if r.bar == nil || r.url != p.URL {
		r.url = p.URL
		r.bar = progressbar.NewOptions64(p.Total,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetDescription(path.Base(p.URL)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(r.w) }),
		)
	}

	if err := r.bar.Set64(p.Downloaded); err != nil {
		r.logger.Debug("update progress bar", "file", path.Base(p.URL), "error", err)
	}
	if p.Done {
		if err := r.bar.Finish(); err != nil {
			r.logger.Debug("finish progress bar", "file", path.Base(p.URL), "error", err)
		}
		r.bar = nil
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
