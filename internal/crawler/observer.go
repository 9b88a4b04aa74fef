package crawler

// Observer receives lifecycle events of expansions and extraction jobs.
// Implementations must be safe for concurrent use; the metrics package
// provides one backed by Prometheus collectors.
type Observer interface {
	// ExpansionStarted is called when a directory expansion is registered.
	ExpansionStarted()

	// ExpansionFinished is called when a directory expansion ends.
	// err is nil on success.
	ExpansionFinished(err error)

	// JobStarted is called when an extraction job is registered.
	JobStarted()

	// JobFinished is called when an extraction job ends.
	JobFinished(err error)
}

type nopObserver struct{}

func (nopObserver) ExpansionStarted()       {}
func (nopObserver) ExpansionFinished(error) {}
func (nopObserver) JobStarted()             {}
func (nopObserver) JobFinished(error)       {}
