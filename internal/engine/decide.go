package engine

// recordOutcome updates the consecutive error streak after one
// iteration's actions. An iteration where every requested action failed
// counts as one error; a single success resets the streak.
func (r *Run) recordOutcome(anySuccess bool) {
	if anySuccess {
		r.consecutiveErrors = 0
		return
	}
	r.consecutiveErrors++
}

// exceededErrorCeiling reports whether the error streak has gone past
// the configured ceiling. Hitting the ceiling exactly is still
// survivable; exceeding it fails the run.
func (rn *Runner) exceededErrorCeiling(run *Run) bool {
	return run.consecutiveErrors > rn.cfg.ErrorCeiling
}
