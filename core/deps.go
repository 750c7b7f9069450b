package core

import "pkt.systems/quicktext/internal/host"

// RegistryDeps captures the collaborators of the session registry.
type RegistryDeps struct {
	Host      host.Adapter
	Store     EntryStore
	EventSink EventSink
	Confirmer Confirmer
}
