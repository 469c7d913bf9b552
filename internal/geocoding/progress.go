package geocoding

import (
	"log/slog"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// progress reports resolution progress on stderr. When stderr is not a terminal it
// stays silent.
type progress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	log *slog.Logger
}

func newProgress(total int, description string, log *slog.Logger) *progress {
	p := &progress{log: log}
	if total > 0 && isatty.IsTerminal(os.Stderr.Fd()) {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func (p *progress) add(n int) {
	if p.bar == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bar.Add(n); err != nil {
		p.log.Debug("Failed to update progress bar", "error", err)
	}
}

func (p *progress) finish() {
	if p.bar == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bar.Finish(); err != nil {
		p.log.Debug("Failed to finish progress bar", "error", err)
	}
}
