package crawler

import "sync"

// Coordinator tracks the in-flight units of one crawl session and signals
// when all of them have finished.
//
// Two counters are kept: pending directory expansions (including the root)
// and pending extraction jobs. A unit must be registered before the
// goroutine running it is started and deregistered only after it has fully
// finished. Since a parent expansion registers its children before it
// deregisters itself, both counters can only reach zero together once the
// whole tree rooted at the first registration is done.
type Coordinator struct {
	mu                sync.Mutex
	pendingExpansions int
	pendingJobs       int
	started           bool
	finished          bool
	done              chan struct{}
}

// NewCoordinator creates a Coordinator with no pending units.
func NewCoordinator() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// BeginExpansion registers a directory expansion.
func (c *Coordinator) BeginExpansion() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.register()
	c.pendingExpansions++
}

// EndExpansion deregisters a directory expansion.
func (c *Coordinator) EndExpansion() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingExpansions == 0 {
		panic("crawler: EndExpansion without matching BeginExpansion")
	}
	c.pendingExpansions--
	c.settle()
}

// BeginJob registers an extraction job.
func (c *Coordinator) BeginJob() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.register()
	c.pendingJobs++
}

// EndJob deregisters an extraction job.
func (c *Coordinator) EndJob() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingJobs == 0 {
		panic("crawler: EndJob without matching BeginJob")
	}
	c.pendingJobs--
	c.settle()
}

// Pending returns the current counter values.
func (c *Coordinator) Pending() (expansions, jobs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingExpansions, c.pendingJobs
}

// Done returns a channel closed when both counters have dropped to zero
// after the first registration.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until every registered unit has finished. It returns
// immediately if nothing was ever registered.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	idle := !c.started
	c.mu.Unlock()
	if idle {
		return
	}
	<-c.done
}

// register must be called with mu held. Registering after completion means
// a unit escaped the tree that was being counted.
func (c *Coordinator) register() {
	if c.finished {
		panic("crawler: unit registered after crawl completion")
	}
	c.started = true
}

// settle must be called with mu held.
func (c *Coordinator) settle() {
	if c.pendingExpansions == 0 && c.pendingJobs == 0 && !c.finished {
		c.finished = true
		close(c.done)
	}
}
