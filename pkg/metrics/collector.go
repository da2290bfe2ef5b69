package metrics

// RecordSessionStart should be called once a session enters Active, and
// RecordSessionEnd once it reaches a terminal state. Together they keep
// SessionsActive accurate without a polling loop.
func RecordSessionStart() {
	SessionsActive.Inc()
}

// RecordSessionEnd decrements SessionsActive and records the terminal
// outcome (one of "committed", "aborted", "partially_committed").
func RecordSessionEnd(outcome string) {
	SessionsActive.Dec()
	SessionsTotal.WithLabelValues(outcome).Inc()
	if outcome == "partially_committed" {
		PartiallyCommittedTotal.Inc()
	}
}

// RecordPrepareFailure increments the prepare-failure counter for a
// resource whose Prepare call voted false or errored.
func RecordPrepareFailure(resourceName string) {
	PrepareFailuresTotal.WithLabelValues(resourceName).Inc()
}

// RecordResourceEnrolled and RecordResourceReleased track the number of
// resource adapters currently enrolled across all live sessions.
func RecordResourceEnrolled() {
	ResourcesEnrolled.Inc()
}

func RecordResourceReleased() {
	ResourcesEnrolled.Dec()
}

// SetStagedOpsPending reports how many staged save/delete operations a
// named resource adapter is currently buffering.
func SetStagedOpsPending(resourceName string, count int) {
	StagedOpsPending.WithLabelValues(resourceName).Set(float64(count))
}
