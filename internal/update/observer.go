package update

import "github.com/nightforge/patchwright/internal/manifest"

// Observer receives the host-observable events the orchestrator raises
// while checking for and applying updates. It is injected at New(...) time
// rather than routed through a global event registry, so tests can
// instantiate two Updaters side by side against independent observers.
type Observer interface {
	FileIdentifiersUpdated(server *manifest.Manifest)
	LocalFileCheckProgressChanged(done, total int)
	OnCustomComponentsOutdated()
	OnLocalFileVersionsChecked(local *manifest.Manifest)
	OnUpdateCompleted()
	OnUpdateFailed(err error)
	OnVersionStateChanged(state manifest.VersionState)
	OnFileDownloadCompleted(archiveName string)
	Restart(clientExecutableName, baseDirectory string)
	UpdateProgressChanged(currentFile string, filePercent, totalPercent float64)
}

// NopObserver discards every event. Embed it to implement Observer while
// overriding only the methods a caller cares about.
type NopObserver struct{}

func (NopObserver) FileIdentifiersUpdated(*manifest.Manifest)        {}
func (NopObserver) LocalFileCheckProgressChanged(done, total int)    {}
func (NopObserver) OnCustomComponentsOutdated()                      {}
func (NopObserver) OnLocalFileVersionsChecked(*manifest.Manifest)    {}
func (NopObserver) OnUpdateCompleted()                               {}
func (NopObserver) OnUpdateFailed(error)                             {}
func (NopObserver) OnVersionStateChanged(manifest.VersionState)      {}
func (NopObserver) OnFileDownloadCompleted(string)                   {}
func (NopObserver) Restart(string, string)                           {}
func (NopObserver) UpdateProgressChanged(string, float64, float64)   {}
