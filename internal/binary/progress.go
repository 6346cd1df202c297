package binary

import (
	"io"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Progress is a snapshot of a running download.
type Progress struct {
	URL        string
	Downloaded int64
	Total      int64 // -1 when the server sent no length
	Done       bool
}

// Percent returns the completed share in [0, 100], or -1 if unknown.
func (p Progress) Percent() float64 {
	if p.Done {
		return 100
	}
	if p.Total <= 0 {
		return -1
	}
	pct := float64(p.Downloaded) / float64(p.Total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ProgressFunc receives throttled progress notifications.
type ProgressFunc func(Progress)

// FormatPercent renders a percentage with two significant digits below
// 100. Values that would round up to 100 before completion print as 99.
func FormatPercent(pct float64) string {
	switch {
	case pct >= 100:
		return "100"
	case pct < 0:
		return "?"
	case pct < 10:
		return strconv.FormatFloat(pct, 'f', 1, 64)
	case pct >= 99.5:
		return "99"
	default:
		return strconv.FormatFloat(pct, 'f', 0, 64)
	}
}

// progressReader reports bytes read through a throttle.
type progressReader struct {
	r        io.Reader
	progress Progress
	throttle *rate.Sometimes
	notify   ProgressFunc
}

func newProgressReader(r io.Reader, url string, total int64, interval time.Duration, notify ProgressFunc) *progressReader {
	throttle := &rate.Sometimes{Interval: interval}
	if interval <= 0 {
		throttle = &rate.Sometimes{Every: 1}
	}
	return &progressReader{
		r:        r,
		progress: Progress{URL: url, Total: total},
		throttle: throttle,
		notify:   notify,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.progress.Downloaded += int64(n)
		p.throttle.Do(func() { p.notify(p.progress) })
	}
	return n, err
}

// finish emits the final notification, bypassing the throttle.
func (p *progressReader) finish() {
	p.progress.Done = true
	p.notify(p.progress)
}
