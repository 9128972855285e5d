package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"git.home.luguber.info/inful/manyvis/internal/editor"
	"git.home.luguber.info/inful/manyvis/internal/export"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
	"git.home.luguber.info/inful/manyvis/internal/metrics"
	"git.home.luguber.info/inful/manyvis/internal/state"
)

// Editor runs the external edit round trip.
type Editor interface {
	Edit(ctx context.Context) (*editor.Result, error)
}

// Dispatcher runs commands against a store.
type Dispatcher struct {
	store    *state.Store
	parser   manycore.Parser
	pipeline *export.Pipeline
	editor   Editor
	picker   export.FilePicker
	emitter  Emitter
	recorder metrics.Recorder
	now      func() time.Time

	defaultScale float64
	onParse      func(path string)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithParser(p manycore.Parser) Option { return func(d *Dispatcher) { d.parser = p } }
func WithPipeline(p *export.Pipeline) Option { return func(d *Dispatcher) { d.pipeline = p } }
func WithEditor(e Editor) Option { return func(d *Dispatcher) { d.editor = e } }
func WithFilePicker(p export.FilePicker) Option { return func(d *Dispatcher) { d.picker = p } }
func WithEmitter(e Emitter) Option { return func(d *Dispatcher) { d.emitter = e } }
func WithRecorder(r metrics.Recorder) Option { return func(d *Dispatcher) { d.recorder = r } }
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }
func WithDefaultScale(scale float64) Option { return func(d *Dispatcher) { d.defaultScale = scale } }

// WithParseHook is called with the path after every successful parse.
func WithParseHook(fn func(path string)) Option { return func(d *Dispatcher) { d.onParse = fn } }

// New creates a dispatcher. Without options it parses real files, has no
// editor, cannot pick files, drops events and records no metrics.
func New(store *state.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:        store,
		parser:       manycore.FileParser{},
		pipeline:     export.NewPipeline(0),
		emitter:      NoopEmitter{},
		recorder:     metrics.NoopRecorder{},
		now:          time.Now,
		defaultScale: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// run executes a request/response command with metrics and panic recovery.
func (d *Dispatcher) run(ctx context.Context, command string, fn func(ctx context.Context) (Result, error)) (res Result) {
	start := d.now()
	defer func() {
		if r := recover(); r != nil {
			res = failure(d.recovered(command, r))
			d.recorder.IncCommandResult(command, metrics.ResultPanic)
		}
		d.recorder.ObserveCommandDuration(command, time.Since(start))
	}()

	res, err := fn(ctx)
	if err != nil {
		res = failure(err)
		d.recordFailure(command, res.Err)
		return res
	}
	d.recorder.IncCommandResult(command, metrics.ResultSuccess)
	slog.Debug("Command completed", logfields.Command(command), logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return res
}

// trigger executes a fire-and-forget command. Failures become error events.
func (d *Dispatcher) trigger(ctx context.Context, command string, fn func(ctx context.Context) error) {
	start := d.now()
	defer func() {
		if r := recover(); r != nil {
			d.emitError(d.recovered(command, r))
			d.recorder.IncCommandResult(command, metrics.ResultPanic)
		}
		d.recorder.ObserveCommandDuration(command, time.Since(start))
	}()

	if err := fn(ctx); err != nil {
		ce := ferrors.Classify(err)
		d.emitError(ce)
		d.recordFailure(command, ce)
		return
	}
	d.recorder.IncCommandResult(command, metrics.ResultSuccess)
}

func (d *Dispatcher) recovered(command string, r any) error {
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	slog.Error("Command panicked", logfields.Command(command), slog.Any("panic", r), slog.String("stack", string(stack[:n])))
	return ferrors.InternalError(fmt.Sprintf("command %s panicked: %v", command, r)).Build()
}

func (d *Dispatcher) recordFailure(command string, ce *ferrors.ClassifiedError) {
	result := metrics.ResultError
	if ce.IsCategory(ferrors.CategoryLockContention) {
		result = metrics.ResultContention
	}
	d.recorder.IncCommandResult(command, result)
	slog.Warn("Command failed",
		logfields.Command(command),
		logfields.Category(string(ce.Category())),
		logfields.Error(ce))
}

func (d *Dispatcher) emit(kind, message string, data any) {
	slog.Debug("Emitting event", logfields.Event(kind))
	d.emitter.Emit(Event{Type: kind, Message: message, Data: data, Timestamp: d.now().UTC()})
}

func (d *Dispatcher) emitError(err error) {
	d.emit(EventError, failure(err).Message, nil)
}

func notLoaded(message string) error {
	return ferrors.NotLoaded(message).Build()
}

const (
	msgLoadFirst   = "Load a system before generating a render."
	msgMustLoad    = "You must load a system first."
	msgGeneratedOK = "Successfully generated SVG"
	msgCancelled   = "Cancelled."
)
