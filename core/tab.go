package core

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
	"pkt.systems/quicktext/schema"
)

type digest [blake2b.Size256]byte

func contentDigest(text string) digest {
	return blake2b.Sum256([]byte(text))
}

type tab struct {
	id         schema.TabID
	content    string
	ref        *schema.FileRef
	customName schema.TabName
	// untitled is the ordinal used for the display name of file-less tabs.
	untitled int
	// base is the digest of the last loaded or saved content. Without a base
	// the tab stays dirty until saved.
	base    digest
	hasBase bool
	dirty   bool
	status  schema.TabStatus
	errText string
}

func (t *tab) setContent(text string) {
	t.content = text
	if t.hasBase {
		t.dirty = contentDigest(text) != t.base
		return
	}
	t.dirty = true
}

func (t *tab) markPersisted(text string) {
	t.base = contentDigest(text)
	t.hasBase = true
	t.dirty = contentDigest(t.content) != t.base
}

func (t *tab) refCopy() *schema.FileRef {
	if t.ref == nil {
		return nil
	}
	ref := *t.ref
	return &ref
}

func (t *tab) displayName(untitledName string) schema.TabName {
	if t.customName != "" {
		return t.customName
	}
	if t.ref != nil && t.ref.Name != "" {
		return schema.TabName(t.ref.Name)
	}
	if t.untitled <= 1 {
		return schema.TabName(untitledName)
	}
	return schema.TabName(fmt.Sprintf("%s %d", untitledName, t.untitled))
}

func (t *tab) snapshot(untitledName string, active bool) schema.TabSnapshot {
	status := t.status
	if status == "" {
		status = schema.TabStatusOK
	}
	return schema.TabSnapshot{
		ID:         t.id,
		Name:       t.displayName(untitledName),
		CustomName: t.customName,
		Ref:        t.refCopy(),
		Content:    t.content,
		Dirty:      t.dirty,
		Status:     status,
		Error:      t.errText,
		Active:     active,
	}
}
