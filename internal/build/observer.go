package build

// Observer is notified of the visible effects of a build. Calls happen on
// the goroutine that drives the Context, one at a time.
type Observer interface {
	// ArtifactWritten reports that src was compiled to out.
	ArtifactWritten(src, out string)
	// ArtifactRemoved reports that the artifact at out was deleted.
	ArtifactRemoved(out string)
	// CompileFailed reports a per-file failure. The previous artifact, if
	// any, is left in place.
	CompileFailed(src string, err error)
	// ConfigReloaded reports the aliases that changed in a reload.
	ConfigReloaded(changed []string)
	// PassFinished marks the end of one Initialize or HandleEvent call.
	// Everything reported since the previous call belongs to that pass.
	PassFinished()
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ArtifactWritten(string, string) {}
func (NopObserver) ArtifactRemoved(string)         {}
func (NopObserver) CompileFailed(string, error)    {}
func (NopObserver) ConfigReloaded([]string)        {}
func (NopObserver) PassFinished()                  {}

// Stats counts what a Context has done since it was created.
type Stats struct {
	Compiled int
	Failed   int
	Removed  int
}

// Multi fans notifications out to several observers in order.
type Multi []Observer

func (m Multi) ArtifactWritten(src, out string) {
	for _, o := range m {
		o.ArtifactWritten(src, out)
	}
}

func (m Multi) ArtifactRemoved(out string) {
	for _, o := range m {
		o.ArtifactRemoved(out)
	}
}

func (m Multi) CompileFailed(src string, err error) {
	for _, o := range m {
		o.CompileFailed(src, err)
	}
}

func (m Multi) ConfigReloaded(changed []string) {
	for _, o := range m {
		o.ConfigReloaded(changed)
	}
}

func (m Multi) PassFinished() {
	for _, o := range m {
		o.PassFinished()
	}
}
