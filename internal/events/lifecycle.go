package events

// LifecycleKind enumerates the transitions a relay epoch can go through.
type LifecycleKind string

const (
	ClientAttached    LifecycleKind = "client-attached"
	ClientDetached    LifecycleKind = "client-detached"
	ExtensionAttached LifecycleKind = "extension-attached"
	ExtensionDetached LifecycleKind = "extension-detached"
)

// LifecycleEvent describes a single epoch transition.
type LifecycleEvent struct {
	Epoch  int64
	Kind   LifecycleKind
	Detail string
}
