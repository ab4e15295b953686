package event

// scheduleSweepLocked arms the next idle sweep. Caller must hold e.mu.
func (e *Emitter) scheduleSweepLocked() {
	e.sweeper = e.cfg.clock.AfterFunc(e.cfg.autoCleanupThreshold, e.sweep)
}

// sweep evicts every registration idle for longer than the threshold, then
// reschedules itself.
func (e *Emitter) sweep() {
	e.mu.Lock()
	if e.sweeper == nil {
		e.mu.Unlock()
		return
	}

	cutoff := e.cfg.clock.Now().Add(-e.cfg.autoCleanupThreshold)
	evicted := 0
	for _, x := range e.entriesLocked() {
		if x.meta != nil && x.meta.lastAccess.Before(cutoff) && e.removeEntryLocked(x) {
			evicted++
		}
	}
	e.scheduleSweepLocked()
	e.mu.Unlock()

	if evicted > 0 {
		e.log.Debug("evicted idle listeners", "count", evicted, "threshold", e.cfg.autoCleanupThreshold)
	}
}
