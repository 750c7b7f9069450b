package core

import (
	"sync/atomic"

	"pkt.systems/quicktext/schema"
)

var tabSeq atomic.Int64

// newTabID never returns the same id twice within a process.
func newTabID() schema.TabID {
	return schema.TabID(tabSeq.Add(1))
}
