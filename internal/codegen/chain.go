package codegen

import (
	"context"
	"errors"
	"log/slog"
)

// Chain tries each generator in order and returns the first success. Results
// from any generator after the first are marked UsedFallback.
type Chain struct {
	generators []Generator
}

func NewChain(generators ...Generator) *Chain {
	return &Chain{generators: generators}
}

func (c *Chain) Generate(ctx context.Context, req Request) (*Result, error) {
	var errs []error
	for i, g := range c.generators {
		res, err := g.Generate(ctx, req)
		if err == nil {
			res.UsedFallback = i > 0
			return res, nil
		}
		if errors.Is(err, ErrInvalidRequest) || ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("code generator failed, trying next", "index", i, "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrUnavailable
	}
	return nil, errors.Join(errs...)
}

// Refine uses the generators that can refine, in the same order.
func (c *Chain) Refine(ctx context.Context, req RefineRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var errs []error
	first := true
	for _, g := range c.generators {
		r, ok := g.(Refiner)
		if !ok {
			continue
		}
		res, err := r.Refine(ctx, req)
		if err == nil {
			res.UsedFallback = !first
			return res, nil
		}
		if errors.Is(err, ErrInvalidRequest) || ctx.Err() != nil {
			return nil, err
		}
		first = false
		slog.Warn("code refiner failed, trying next", "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrUnavailable
	}
	return nil, errors.Join(errs...)
}
