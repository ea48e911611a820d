package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ScanProgressBar reports symbol scanning progress as a progress bar.
type ScanProgressBar struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

// NewScanProgressBar creates a progress reporter; quiet disables all output.
func NewScanProgressBar(quiet bool) *ScanProgressBar {
	return &ScanProgressBar{quiet: quiet}
}

func (p *ScanProgressBar) OnScanStart(totalFiles int) {
	if p.quiet {
		return
	}
	p.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Scanning symbols"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (p *ScanProgressBar) OnFileScanned(processed, total int, fileName string) {
	if p.quiet {
		return
	}
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *ScanProgressBar) OnScanComplete(symbolCount int, duration time.Duration) {
	if p.quiet {
		return
	}
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
	fmt.Printf("✓ Scanned %d symbols in %.1fs\n", symbolCount, duration.Seconds())
}
