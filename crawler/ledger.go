package crawler

// Ledger records the outcome of every page URL attempted during one run.
// It is owned by a single Run and is not safe for concurrent use.
type Ledger struct {
	downloaded int
	failed     []string
	skipped    []string
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// RecordSuccess marks url as downloaded.
func (l *Ledger) RecordSuccess(url string) {
	l.downloaded++
}

// RecordFailure marks url as failed. Failures keep their insertion order.
func (l *Ledger) RecordFailure(url string) {
	l.failed = append(l.failed, url)
}

// RecordSkipped marks url as not attempted because robots.txt disallows it.
func (l *Ledger) RecordSkipped(url string) {
	l.skipped = append(l.skipped, url)
}

// Downloaded returns the number of successful pages.
func (l *Ledger) Downloaded() int { return l.downloaded }

// Failed returns the failed URLs in the order they failed. Never nil.
func (l *Ledger) Failed() []string {
	return append([]string{}, l.failed...)
}

// Skipped returns the robots-disallowed URLs in order, or nil when none.
func (l *Ledger) Skipped() []string {
	if len(l.skipped) == 0 {
		return nil
	}
	return append([]string(nil), l.skipped...)
}
