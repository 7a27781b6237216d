package crawler

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Progress reports per-section download progress.
type Progress interface {
	Start(section string, total int)
	Advance(pageURL string)
	Finish(succeeded int)
}

type noopProgress struct{}

func (noopProgress) Start(string, int) {}
func (noopProgress) Advance(string)    {}
func (noopProgress) Finish(int)        {}

// SpinnerProgress shows a terminal spinner with an n/total counter. It stays
// silent when f is not a terminal.
type SpinnerProgress struct {
	s       *spinner.Spinner
	section string
	total   int
	done    int
}

// NewSpinnerProgress creates a SpinnerProgress drawing to f.
func NewSpinnerProgress(f *os.File) *SpinnerProgress {
	return &SpinnerProgress{
		s: spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriterFile(f)),
	}
}

func (p *SpinnerProgress) Start(section string, total int) {
	p.s.Lock()
	p.section, p.total, p.done = section, total, 0
	p.s.Suffix = p.suffix()
	p.s.FinalMSG = ""
	p.s.Unlock()
	p.s.Start()
}

func (p *SpinnerProgress) Advance(string) {
	p.s.Lock()
	p.done++
	p.s.Suffix = p.suffix()
	p.s.Unlock()
}

func (p *SpinnerProgress) Finish(succeeded int) {
	p.s.Lock()
	p.s.FinalMSG = fmt.Sprintf("✓ %s: downloaded %d/%d pages\n", p.section, succeeded, p.total)
	p.s.Unlock()
	p.s.Stop()
}

func (p *SpinnerProgress) suffix() string {
	return fmt.Sprintf(" Downloading %s pages %d/%d", p.section, p.done, p.total)
}
