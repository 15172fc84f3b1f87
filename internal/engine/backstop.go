package engine

import "github.com/novafield/rewind/internal/scene"

// AttachBackstop installs a graph mutation hook that captures a Modified
// snapshot of any object about to change. It is a best-effort safety net
// underneath the explicit capture calls, not a replacement for them:
// skills still call the capture API directly, and the recorder's
// first-write-wins rule makes the resulting double capture harmless.
func AttachBackstop(g *scene.Graph, r *Recorder) {
	g.SetMutationHook(func(o *scene.Object) {
		r.CaptureModified(scene.Identify(o))
	})
}

// DetachBackstop removes the mutation hook.
func DetachBackstop(g *scene.Graph) {
	g.SetMutationHook(nil)
}
