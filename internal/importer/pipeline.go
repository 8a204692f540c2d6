package importer

import (
	"context"
	"fmt"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
)

// State is the lifecycle state of a Pipeline.
type State int

const (
	StateCreated State = iota
	StateLoaded
	StateDraining
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLoaded:
		return "loaded"
	case StateDraining:
		return "draining"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BuildFunc turns a queued item into a transaction when it is drained.
type BuildFunc[T any] func(ctx context.Context, item T) (*ImportedTransaction, error)

// Pipeline holds the buffers of an importer and enforces the load once,
// drain once contract. Items are converted by build at drain time, so
// mappings confirmed while reviewing earlier transactions apply to later ones.
// A Pipeline is used by a single goroutine.
type Pipeline[T any] struct {
	state    State
	items    []T
	build    BuildFunc[T]
	sink     ErrorSink
	balances []ledger.Balance
	prices   []ledger.Price
}

// NewPipeline creates a pipeline in StateCreated. Build errors go to sink;
// without a sink they are returned by Next.
func NewPipeline[T any](build BuildFunc[T], sink ErrorSink) *Pipeline[T] {
	return &Pipeline[T]{build: build, sink: sink}
}

// Start moves the pipeline to StateLoaded. Only the first call succeeds.
// A load that fails after Start leaves an empty, loaded pipeline.
func (p *Pipeline[T]) Start() error {
	if p.state != StateCreated {
		return ErrAlreadyLoaded
	}
	p.state = StateLoaded
	return nil
}

// Fill sets the buffers. It is called once by Load after Start.
func (p *Pipeline[T]) Fill(items []T, balances []ledger.Balance, prices []ledger.Price) {
	p.items = items
	p.balances = balances
	p.prices = prices
}

// State returns the current state.
func (p *Pipeline[T]) State() State {
	return p.state
}

// Next pops and builds the head of the queue. An item that fails to build is
// reported to the sink and skipped. Calling Next before Start is a programming
// error and returns ErrNotLoaded.
func (p *Pipeline[T]) Next(ctx context.Context) (*ImportedTransaction, error) {
	switch p.state {
	case StateCreated:
		return nil, ErrNotLoaded
	case StateExhausted:
		return nil, nil
	}
	for len(p.items) > 0 {
		head := p.items[0]
		p.items = p.items[1:]
		p.state = StateDraining
		t, err := p.build(ctx, head)
		if err == nil {
			return t, nil
		}
		if p.sink == nil {
			return nil, err
		}
		p.sink.Error(err)
	}
	p.state = StateExhausted
	p.items = nil
	return nil, nil
}

// Balances returns a copy of the balance snapshot.
func (p *Pipeline[T]) Balances() []ledger.Balance {
	result := make([]ledger.Balance, len(p.balances))
	copy(result, p.balances)
	return result
}

// Prices returns a copy of the price snapshot.
func (p *Pipeline[T]) Prices() []ledger.Price {
	result := make([]ledger.Price, len(p.prices))
	copy(result, p.prices)
	return result
}

// Ready returns a BuildFunc for pipelines of already built transactions.
func Ready() BuildFunc[ImportedTransaction] {
	return func(_ context.Context, t ImportedTransaction) (*ImportedTransaction, error) {
		return &t, nil
	}
}
