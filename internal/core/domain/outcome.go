package domain

// InstallStatus is the terminal state of one plugin install.
type InstallStatus string

const (
	StatusSuccess       InstallStatus = "success"
	StatusFetchFailed   InstallStatus = "fetch_failed"
	StatusExtractFailed InstallStatus = "extract_failed"
)

// InstallOutcome is produced exactly once per resolved source and never
// mutated afterwards.
type InstallOutcome struct {
	TargetName string
	Status     InstallStatus
	Reason     string
}

// Failed reports whether the install reached a failure state.
func (o InstallOutcome) Failed() bool {
	return o.Status != StatusSuccess
}

// InstallReport aggregates the outcomes of one run, covering every declared
// plugin exactly once. Outcome order is completion order and carries no
// meaning.
type InstallReport struct {
	Outcomes []InstallOutcome
}

// Succeeded counts plugins that installed cleanly.
func (r InstallReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Failed() {
			n++
		}
	}
	return n
}

// Failed counts plugins that reached a failure state.
func (r InstallReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}
