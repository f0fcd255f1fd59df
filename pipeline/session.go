package pipeline

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/longparallel/errors"
	"github.com/kbukum/longparallel/logger"
	"github.com/kbukum/longparallel/observability"
)

// Stages reported in WorkerFault details.
const (
	stageSource    = "source"
	stagePredicate = "predicate"
	stageSelector  = "selector"
)

// Session statuses for logs, spans and metrics.
const (
	statusOK      = "ok"
	statusFaulted = "faulted"
	statusAborted = "aborted"
)

var errEnumeratorClosed = stderrors.New("enumerator closed")

// session is one execution of a query: N workers draining a shared cursor
// into a result channel, supervised until all of them have exited.
type session[S, T any] struct {
	id        string
	cfg       snapshot
	predicate func(S) bool
	selector  func(context.Context, S) (T, error)

	// base carries the span and session id and is never canceled by the
	// session itself. ctx is handed to sources and selectors and is
	// canceled on abort and when the signal fires.
	base   context.Context
	ctx    context.Context
	cancel context.CancelCauseFunc

	cursor  *cursor[S]
	results *resultChannel[T]

	aborted atomic.Bool
	fault   atomic.Pointer[errors.AppError]
	wg      sync.WaitGroup
	stops   []func() bool

	span    trace.Span
	log     *logger.Logger
	started time.Time
}

func startSession[S, T any](ctx context.Context, q *Query[S, T]) *session[S, T] {
	cfg := q.settings.snapshot()
	id := uuid.NewString()

	base := logger.ContextWithSessionID(ctx, id)
	base, span := observability.StartSpan(base, observability.SpanPipelineSession,
		trace.WithAttributes(
			attribute.String(observability.AttrSessionID, id),
			attribute.Int(observability.AttrDegree, cfg.degree),
			attribute.Int(observability.AttrBuffer, cfg.bufferSize),
		),
	)
	sctx, cancel := context.WithCancelCause(base)

	s := &session[S, T]{
		id:        id,
		cfg:       cfg,
		predicate: q.predicate,
		selector:  q.selector,
		base:      base,
		ctx:       sctx,
		cancel:    cancel,
		results:   newResultChannel[T](cfg.bufferSize, sctx.Done()),
		span:      span,
		log:       logger.Get("pipeline").WithContext(base),
		started:   time.Now(),
	}
	s.cursor = newCursor(q.source.Iter(sctx))

	// The consumer's context bounds the whole session; the signal only
	// interrupts selectors and blocked publishes, workers still report it.
	s.stops = append(s.stops,
		context.AfterFunc(ctx, func() { s.shutdown(context.Cause(ctx)) }),
		context.AfterFunc(cfg.signal, func() { cancel(context.Cause(cfg.signal)) }),
	)

	s.cfg.metrics.SessionStarted(base)
	s.log.Debug("session started", logger.Fields(
		logger.FieldDegree, cfg.degree,
		logger.FieldBuffer, cfg.bufferSize,
		"stages", q.stages,
	))

	s.run()
	return s
}

// run launches the workers and the supervisor.
func (s *session[S, T]) run() {
	n := s.cfg.degree
	if n == 0 {
		s.finish()
		return
	}

	s.wg.Add(n)
	for i := range n {
		go s.work(i)
	}
	go func() {
		s.wg.Wait()
		s.finish()
	}()
}

func (s *session[S, T]) work(worker int) {
	defer s.wg.Done()

	s.cfg.metrics.WorkerStarted(s.base)
	defer s.cfg.metrics.WorkerStopped(s.base)

	stage := stageSource
	defer func() {
		if r := recover(); r != nil {
			s.capture(worker, errors.WorkerFault(stage, errors.NewPanicError(r)))
		}
	}()

	for {
		if s.aborted.Load() {
			return
		}

		stage = stageSource
		item, ok, err := s.cursor.takeNext(s.ctx)
		if err != nil {
			if fault := s.classify(stageSource, err); fault != nil {
				s.capture(worker, fault)
			}
			return
		}
		if !ok {
			return
		}
		taken := time.Now()
		s.cfg.metrics.ItemTaken(s.base)

		// Another worker may have failed while this one held the cursor.
		if s.aborted.Load() {
			return
		}

		stage = stagePredicate
		if s.predicate != nil && !s.predicate(item) {
			s.cfg.metrics.ItemFiltered(s.base)
			continue
		}

		if s.cfg.signal.Err() != nil {
			s.capture(worker, errors.OperationCanceled(context.Cause(s.cfg.signal)))
			return
		}

		stage = stageSelector
		v, err := s.selector(s.ctx, item)
		if err != nil {
			if fault := s.classify(stageSelector, err); fault != nil {
				s.capture(worker, fault)
			}
			return
		}
		if s.results.publish(v) {
			s.cfg.metrics.ItemPublished(s.base, time.Since(taken))
		}
	}
}

// classify turns an error returned by user code into a session fault.
// Context errors caused by an active cancellation signal are reported as
// such; those caused by the session stopping itself are not faults and
// classify returns nil.
func (s *session[S, T]) classify(stage string, err error) *errors.AppError {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		if s.cfg.signal.Err() != nil {
			return errors.OperationCanceled(err)
		}
		if s.ctx.Err() != nil {
			return nil
		}
	}
	return errors.WorkerFault(stage, err)
}

// capture offers fault to the single-assignment slot and aborts the
// session. Only the first fault is kept; the rest go to the sink.
func (s *session[S, T]) capture(worker int, fault *errors.AppError) {
	fault.WithDetail("session_id", s.id).WithDetail(logger.FieldWorker, worker)

	retained := s.fault.CompareAndSwap(nil, fault)
	s.aborted.Store(true)

	code := string(fault.Code)
	if !retained {
		s.cfg.metrics.Fault(s.base, code, observability.OutcomeDiscarded)
		report(s.base, s.cfg.sink, fault)
		return
	}

	s.cancel(fault)
	s.cfg.metrics.Fault(s.base, code, observability.OutcomeRetained)
	s.log.Debug("fault retained", logger.Fields(
		logger.FieldWorker, worker,
		logger.FieldCode, code,
		logger.FieldError, fault.Error(),
	))
}

// shutdown stops the session without recording a fault.
func (s *session[S, T]) shutdown(cause error) {
	s.aborted.Store(true)
	s.cancel(cause)
}

// finish runs once every worker has exited: it releases the source,
// closes out telemetry and completes the result channel, in that order, so
// a consumer that sees the end also sees the session accounted for.
func (s *session[S, T]) finish() {
	for _, stop := range s.stops {
		stop()
	}
	if err := s.cursor.close(); err != nil {
		s.log.Warn("closing source failed", logger.ErrorFields("close", err))
	}

	var fault error
	status := statusOK
	if f := s.fault.Load(); f != nil {
		fault = f
		status = statusFaulted
	} else if s.aborted.Load() {
		status = statusAborted
	}

	elapsed := time.Since(s.started)
	observability.SetSpanError(s.base, fault)
	s.span.SetAttributes(attribute.String(observability.AttrStatus, status))
	s.span.End()
	s.cfg.metrics.SessionEnded(s.base, status, elapsed)
	s.log.Debug("session finished", logger.MergeWithDuration(
		logger.Fields(logger.FieldStatus, status), elapsed,
	))

	s.results.complete(fault)
	s.cancel(nil)
}
