package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/blogsol/internal/auth"
	"github.com/roach88/blogsol/internal/ir"
	"github.com/roach88/blogsol/internal/program"
	"github.com/roach88/blogsol/internal/store"
)

// Observer receives every processed instruction and airdrop.
// Implemented by metrics.Recorder.
type Observer interface {
	ObserveInstruction(r ir.Receipt, elapsed time.Duration)
	ObserveAirdrop(r AirdropReceipt)
}

type nopObserver struct{}

func (nopObserver) ObserveInstruction(ir.Receipt, time.Duration) {}
func (nopObserver) ObserveAirdrop(AirdropReceipt)                {}

// AirdropRequest credits lamports to an identity so it can pay rent.
type AirdropRequest struct {
	To       ir.Pubkey `json:"to"`
	Lamports uint64    `json:"lamports"`
}

// AirdropReceipt is the result of an airdrop.
type AirdropReceipt struct {
	Seq      int64     `json:"seq"`
	To       ir.Pubkey `json:"to"`
	Lamports uint64    `json:"lamports"`
	Balance  uint64    `json:"balance"`
	TraceID  string    `json:"trace_id,omitempty"`
}

// Engine is the single-writer slot runtime.
//
// Thread-safety model:
//   - Submit(), SubmitAirdrop(): safe from any goroutine, need Run()
//   - Execute(), Airdrop(): safe from any goroutine, serialized by the
//     writer lock
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	mu       sync.Mutex // writer lock
	program  *program.Program
	store    *store.Store
	clock    *Clock
	queue    *eventQueue
	traces   TraceGenerator
	observer Observer
	log      logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTraceGenerator sets the trace id source. Default: UUIDv7Generator.
func WithTraceGenerator(g TraceGenerator) Option {
	return func(e *Engine) { e.traces = g }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger. Default: the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine for p. The clock resumes after the last ledger seq.
func New(ctx context.Context, p *program.Program, opts ...Option) (*Engine, error) {
	last, err := p.Store().LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: read last seq: %w", err)
	}

	e := &Engine{
		program:  p,
		store:    p.Store(),
		clock:    NewClockAt(last),
		queue:    newEventQueue(),
		traces:   UUIDv7Generator{},
		observer: nopObserver{},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Program returns the program the engine executes.
func (e *Engine) Program() *program.Program {
	return e.program
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Execute runs ix now and returns its receipt.
//
// A rejected instruction returns both a receipt (Outcome set to the error
// code) and the *program.Error. Any other error means the runtime itself
// failed and nothing was recorded.
func (e *Engine) Execute(ctx context.Context, ix ir.Instruction) (ir.Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.execute(ctx, ix, 0, "")
}

// Airdrop credits req.Lamports to req.To and records it in the ledger.
func (e *Engine) Airdrop(ctx context.Context, req AirdropRequest) (AirdropReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.airdrop(ctx, req, 0, "")
}

// execute runs ix at seq with traceID. Zero values take the next seq and a
// fresh trace id. Caller holds e.mu.
func (e *Engine) execute(ctx context.Context, ix ir.Instruction, seq int64, traceID string) (ir.Receipt, error) {
	start := time.Now()

	receipt := ir.Receipt{Instruction: ix.Name, Signer: ix.Signer}
	if err := ir.Seal(&ix); err != nil {
		rejected := program.NewError(program.ErrCodeInvalidArgument, err, "instruction cannot be encoded")
		return e.reject(receipt, rejected, start)
	}
	receipt.InstructionID = ix.ID

	seen, err := e.store.HasEntry(ctx, ix.ID)
	if err != nil {
		return receipt, fmt.Errorf("check ledger for %s: %w", ix.ID, err)
	}
	if seen {
		rejected := program.NewError(program.ErrCodeAuthorization, nil, "instruction %s already processed", ix.ID)
		return e.reject(receipt, rejected, start)
	}

	if seq == 0 {
		seq = e.clock.Next()
	} else {
		e.clock.Observe(seq)
	}
	if traceID == "" {
		traceID = e.traces.Generate()
	}
	receipt.Seq, receipt.TraceID = seq, traceID

	body, err := json.Marshal(ix)
	if err != nil {
		return receipt, fmt.Errorf("encode instruction %s: %w", ix.ID, err)
	}
	entry := store.Entry{
		Seq:     seq,
		Kind:    store.EntryInstruction,
		Ref:     ix.ID,
		Body:    string(body),
		TraceID: traceID,
	}

	log := e.log.WithFields(logrus.Fields{
		"id":          ix.ID,
		"instruction": ix.Name,
		"signer":      ix.Signer.String(),
		"seq":         seq,
		"trace":       traceID,
	})
	log.Debug("executing instruction")

	var res program.Result
	err = e.store.Atomic(ctx, func(tx *store.Tx) error {
		var err error
		res, err = e.program.Execute(ctx, tx, ix, seq)
		if err != nil {
			return err
		}
		entry.Outcome = ir.OutcomeSuccess
		return tx.AppendEntry(ctx, entry)
	})

	if err == nil {
		receipt.Outcome = ir.OutcomeSuccess
		receipt.User = &res.User
		receipt.Post = res.Post
		receipt.PostID = res.PostID
		log.Info("instruction committed")
		e.observer.ObserveInstruction(receipt, time.Since(start))
		return receipt, nil
	}

	code := program.CodeOf(err)
	if code == "" {
		log.WithError(err).Error("instruction failed in runtime")
		return receipt, fmt.Errorf("execute %s: %w", ix.ID, err)
	}

	// Record the rejection. An unverified signature does not claim the id,
	// so a forged copy cannot block the genuine instruction.
	entry.Outcome, entry.Message = string(code), err.Error()
	if errors.Is(err, auth.ErrInvalidSignature) || errors.Is(err, auth.ErrMissingSignature) {
		entry.Ref = ""
	}
	if aerr := e.store.AppendEntry(ctx, entry); aerr != nil {
		return receipt, fmt.Errorf("record rejected instruction %s: %w", ix.ID, aerr)
	}
	log.WithField("outcome", code).WithError(err).Warn("instruction rejected")
	return e.reject(receipt, err, start)
}

func (e *Engine) reject(receipt ir.Receipt, err error, start time.Time) (ir.Receipt, error) {
	receipt.Outcome = string(program.CodeOf(err))
	receipt.Message = err.Error()
	e.observer.ObserveInstruction(receipt, time.Since(start))
	return receipt, err
}

// airdrop credits an identity at seq. Caller holds e.mu.
func (e *Engine) airdrop(ctx context.Context, req AirdropRequest, seq int64, traceID string) (AirdropReceipt, error) {
	if req.Lamports == 0 {
		return AirdropReceipt{}, program.NewError(program.ErrCodeInvalidArgument, nil, "airdrop of zero lamports")
	}
	if req.Lamports > math.MaxInt64 {
		return AirdropReceipt{}, program.NewError(program.ErrCodeInvalidArgument, nil, "airdrop of %d lamports exceeds %d", req.Lamports, int64(math.MaxInt64))
	}
	if req.To.IsZero() {
		return AirdropReceipt{}, program.NewError(program.ErrCodeInvalidArgument, nil, "airdrop recipient missing")
	}

	body, err := ir.MarshalCanonical(map[string]any{
		"to":       req.To.String(),
		"lamports": req.Lamports,
	})
	if err != nil {
		return AirdropReceipt{}, fmt.Errorf("encode airdrop: %w", err)
	}

	if seq == 0 {
		seq = e.clock.Next()
	} else {
		e.clock.Observe(seq)
	}
	if traceID == "" {
		traceID = e.traces.Generate()
	}

	receipt := AirdropReceipt{Seq: seq, To: req.To, Lamports: req.Lamports, TraceID: traceID}
	err = e.store.Atomic(ctx, func(tx *store.Tx) error {
		if err := tx.Credit(ctx, req.To, req.Lamports); err != nil {
			return err
		}
		balance, err := tx.Balance(ctx, req.To)
		if err != nil {
			return err
		}
		receipt.Balance = balance
		return tx.AppendEntry(ctx, store.Entry{
			Seq:     seq,
			Kind:    store.EntryAirdrop,
			Body:    string(body),
			Outcome: ir.OutcomeSuccess,
			TraceID: traceID,
		})
	})
	if errors.Is(err, store.ErrBalanceOverflow) {
		return AirdropReceipt{}, program.NewError(program.ErrCodeInvalidArgument, err, "airdrop to %s", req.To)
	}
	if err != nil {
		return AirdropReceipt{}, fmt.Errorf("airdrop to %s: %w", req.To, err)
	}

	e.log.WithFields(logrus.Fields{
		"to":       req.To.String(),
		"lamports": req.Lamports,
		"seq":      seq,
	}).Info("airdrop committed")
	e.observer.ObserveAirdrop(receipt)
	return receipt, nil
}

// Submit queues ix for the Run loop and waits for its receipt.
// If ctx ends first, Submit returns ctx.Err() but the instruction may
// still execute.
func (e *Engine) Submit(ctx context.Context, ix ir.Instruction) (ir.Receipt, error) {
	res, err := e.submit(ctx, Event{Type: EventTypeInstruction, Instruction: &ix})
	if err != nil {
		return ir.Receipt{}, err
	}
	return res.Receipt, res.Err
}

// SubmitAirdrop queues an airdrop for the Run loop and waits for it.
func (e *Engine) SubmitAirdrop(ctx context.Context, req AirdropRequest) (AirdropReceipt, error) {
	res, err := e.submit(ctx, Event{Type: EventTypeAirdrop, Airdrop: &req})
	if err != nil {
		return AirdropReceipt{}, err
	}
	return res.Airdrop, res.Err
}

func (e *Engine) submit(ctx context.Context, ev Event) (Result, error) {
	reply := make(chan Result, 1)
	ev.Reply = reply
	if !e.queue.Enqueue(ev) {
		return Result{}, ErrStopped
	}
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-reply:
		return res, nil
	}
}

// Run processes queued events until ctx is cancelled or Stop is called.
// Events still queued when Run returns are answered with ErrStopped.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting")
	defer e.drain()

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.process(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			e.log.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()
		case <-e.queue.Wait():
			if e.queue.isClosed() && e.queue.Len() == 0 {
				e.log.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once queued events are processed.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) process(ctx context.Context, ev Event) {
	var res Result
	switch ev.Type {
	case EventTypeInstruction:
		res.Receipt, res.Err = e.Execute(ctx, *ev.Instruction)
	case EventTypeAirdrop:
		res.Airdrop, res.Err = e.Airdrop(ctx, *ev.Airdrop)
	default:
		res.Err = fmt.Errorf("unknown event type: %d", ev.Type)
	}
	if ev.Reply != nil {
		ev.Reply <- res
	}
}

func (e *Engine) drain() {
	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		if ev.Reply != nil {
			ev.Reply <- Result{Err: ErrStopped}
		}
	}
}
