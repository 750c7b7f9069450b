package core

import (
	"context"

	"golang.org/x/sync/errgroup"
	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/schema"
)

type readResult struct {
	text string
	err  error
}

// readAll reads refs concurrently with at most limit reads in flight.
// Results are indexed like refs; a failed read never cancels the others.
func readAll(ctx context.Context, adapter host.Adapter, refs []schema.FileRef, limit int) []readResult {
	results := make([]readResult, len(refs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, ref := range refs {
		g.Go(func() error {
			text, err := adapter.Read(ctx, ref)
			results[i] = readResult{text: text, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// restoreAll resolves retained ids concurrently. A nil entry means the
// retained file is gone.
func restoreAll(ctx context.Context, adapter host.Adapter, ids []schema.RetentionID, limit int) ([]*schema.FileRef, error) {
	results := make([]*schema.FileRef, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			ref, err := adapter.Restore(gctx, id)
			if err != nil {
				return err
			}
			if ref != nil && adapter.Revalidate(gctx, *ref) {
				results[i] = ref
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
