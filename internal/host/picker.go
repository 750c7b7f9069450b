package host

import (
	"context"

	"pkt.systems/quicktext/schema"
)

// Picker asks the user for one or more paths. It returns nil, nil on cancel.
type Picker interface {
	Pick(ctx context.Context, req ChooseRequest) ([]string, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, req ChooseRequest) ([]string, error)

// Pick calls f.
func (f PickerFunc) Pick(ctx context.Context, req ChooseRequest) ([]string, error) {
	return f(ctx, req)
}

// StaticPicker answers every prompt with preconfigured paths.
type StaticPicker struct {
	Open []string
	Save string
}

// Pick returns the configured paths for the request mode.
func (p StaticPicker) Pick(_ context.Context, req ChooseRequest) ([]string, error) {
	if req.Mode == schema.EntryModeSave {
		if p.Save == "" {
			return nil, nil
		}
		return []string{p.Save}, nil
	}
	if len(p.Open) == 0 {
		return nil, nil
	}
	if !req.Multiple {
		return p.Open[:1], nil
	}
	return append([]string(nil), p.Open...), nil
}

type pickResult struct {
	paths []string
	err   error
}

// pick runs the picker without blocking past ctx cancellation.
func pick(ctx context.Context, picker Picker, req ChooseRequest) ([]string, error) {
	if picker == nil {
		return nil, schema.ErrNoPicker
	}
	done := make(chan pickResult, 1)
	go func() {
		paths, err := picker.Pick(ctx, req)
		done <- pickResult{paths: paths, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.paths, res.err
	}
}
