// Package watcher runs the market watcher: it filters feed ticks against the
// trading calendar, forwards accepted ticks and persists them at each
// cohort's flush instant.
package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"marketwatcher/internal/calendar"
	"marketwatcher/internal/memorystore"
	"marketwatcher/internal/schedule"
	"marketwatcher/pkg/storage"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// ErrStopped is returned to producers once the coordinator has shut down.
var ErrStopped = errors.New("watcher: coordinator stopped")

// State is the coordinator lifecycle stage.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Consumer receives accepted ticks. Publish must not block.
type Consumer interface {
	Publish(t memorystore.Tick) bool
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(t memorystore.Tick) bool

func (f ConsumerFunc) Publish(t memorystore.Tick) bool { return f(t) }

type eventKind int

const (
	eventTick eventKind = iota
	eventReady
	eventTimer
)

type event struct {
	kind   eventKind
	raw    memorystore.RawTick
	firing schedule.Firing
}

// Options wires a Coordinator.
type Options struct {
	Calendar    *calendar.Calendar
	Instruments *memorystore.InstrumentStore
	Consumers   []Consumer

	// Store receives flushed ticks. A nil Store disables buffering;
	// accepted ticks are still forwarded to consumers.
	Store        storage.Store
	GracePeriod  time.Duration
	WriteTimeout time.Duration

	Clock          clock.Clock
	QueueSize      int
	StatusInterval time.Duration
	Logger         *zap.Logger
}

// Coordinator serializes every tick, session and timer event through one
// queue. Only the goroutine in Run touches the buffer and the scheduler.
type Coordinator struct {
	cal         *calendar.Calendar
	instruments *memorystore.InstrumentStore
	consumers   []Consumer
	grace       time.Duration

	buffer *memorystore.TickBuffer
	writer *Writer
	sched  *schedule.Scheduler
	clock  clock.Clock
	logger *zap.Logger

	events         chan event
	done           chan struct{}
	state          atomic.Int32
	tradingDay     atomic.Value
	statusInterval time.Duration

	accepted atomic.Uint64
	rejected atomic.Uint64
}

func New(opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.Instruments == nil {
		opts.Instruments = memorystore.NewInstrumentStore()
	}

	c := &Coordinator{
		cal:            opts.Calendar,
		instruments:    opts.Instruments,
		consumers:      opts.Consumers,
		grace:          opts.GracePeriod,
		buffer:         memorystore.NewTickBuffer(),
		clock:          opts.Clock,
		logger:         opts.Logger,
		events:         make(chan event, opts.QueueSize),
		done:           make(chan struct{}),
		statusInterval: opts.StatusInterval,
	}
	loc := c.cal.Location()
	if opts.Store != nil {
		c.writer = NewWriter(opts.Store, c.buffer, loc, c.clock.Now, opts.WriteTimeout, c.logger)
	}
	c.sched = schedule.NewScheduler(c.clock, loc, c.fire, c.logger)
	c.tradingDay.Store(schedule.TradingDay(c.clock.Now(), loc))
	return c
}

// State returns the current lifecycle stage.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Subscriptions returns the subscribed instruments in order.
func (c *Coordinator) Subscriptions() []string {
	return c.instruments.GetAll()
}

// TradingDay is the local date (yyyyMMdd) of the current rollover period.
func (c *Coordinator) TradingDay() string {
	return c.tradingDay.Load().(string)
}

// PersistEnabled reports whether accepted ticks are buffered for storage.
func (c *Coordinator) PersistEnabled() bool {
	return c.writer != nil
}

// OnTick enqueues a raw feed update. It blocks while the queue is full.
func (c *Coordinator) OnTick(ctx context.Context, raw memorystore.RawTick) error {
	return c.enqueue(ctx, event{kind: eventTick, raw: raw})
}

// SessionReady reports that the feed session is established.
func (c *Coordinator) SessionReady(ctx context.Context) error {
	return c.enqueue(ctx, event{kind: eventReady})
}

func (c *Coordinator) enqueue(ctx context.Context, ev event) error {
	if c.State() == StateStopped {
		return ErrStopped
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire runs on timer goroutines.
func (c *Coordinator) fire(f schedule.Firing) {
	select {
	case c.events <- event{kind: eventTimer, firing: f}:
	case <-c.done:
	}
}

// Run processes events until ctx is cancelled. Buffered ticks that have not
// reached their flush instant are discarded on shutdown.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.State() == StateStopped {
		return ErrStopped
	}
	c.start(ctx)

	var status <-chan time.Time
	if c.statusInterval > 0 {
		ticker := c.clock.Ticker(c.statusInterval)
		defer ticker.Stop()
		status = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.stop()
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		case <-status:
			c.logStatus()
		}
	}
}

// start prepares storage and arms the flush timers.
func (c *Coordinator) start(ctx context.Context) {
	ids := c.instruments.GetAll()
	if c.writer != nil {
		if failed := c.writer.Prepare(ctx, ids); failed > 0 {
			c.logger.Warn("Storage not ready for some instruments", zap.Int("failed", failed))
		}
	}
	c.arm(c.clock.Now())
	c.logger.Info("Coordinator started",
		zap.Int("instruments", len(ids)),
		zap.Int("cohorts", len(c.sched.Cohorts())),
		zap.Int("timers", c.sched.Armed()),
		zap.Bool("persist", c.writer != nil),
		zap.String("trading_day", c.TradingDay()),
	)
}

func (c *Coordinator) arm(from time.Time) {
	var cohorts []schedule.Cohort
	if c.writer != nil {
		cohorts = schedule.BuildCohorts(c.cal, c.instruments.GetAll(), c.grace)
	}
	c.sched.Arm(cohorts, from)
	for i, cohort := range cohorts {
		c.logger.Info("Flush cohort scheduled",
			zap.Int("cohort", i),
			zap.String("instant", cohort.Instant.String()),
			zap.Time("next", c.sched.NextDue(i)),
			zap.Strings("instruments", cohort.Instruments),
		)
	}
}

func (c *Coordinator) stop() {
	c.state.Store(int32(StateStopped))
	close(c.done)
	c.sched.Disarm()
	c.logger.Info("Coordinator stopped", zap.Int("discarded_ticks", c.buffer.CountAll()))
}

func (c *Coordinator) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventReady:
		c.onReady()
	case eventTick:
		c.onTick(ev.raw)
	case eventTimer:
		c.onTimer(ctx, ev.firing)
	}
}

func (c *Coordinator) onReady() {
	if c.state.CompareAndSwap(int32(StateIdle), int32(StateActive)) {
		c.logger.Info("Feed session ready, accepting ticks")
	}
}

func (c *Coordinator) onTick(raw memorystore.RawTick) {
	if c.State() != StateActive {
		return
	}
	sessions, err := c.cal.SessionsFor(raw.InstrumentID)
	if err != nil {
		c.rejected.Add(1)
		return
	}
	t, err := calendar.ParseTimeOfDay(raw.UpdateTime)
	if err != nil {
		c.rejected.Add(1)
		c.logger.Debug("Malformed tick time", zap.String("instrument", raw.InstrumentID), zap.Error(err))
		return
	}
	d := calendar.Validate(sessions, t)
	if !d.Accept {
		c.rejected.Add(1)
		return
	}

	tick := raw.Accept(d.Seconds)
	c.accepted.Add(1)
	for _, consumer := range c.consumers {
		consumer.Publish(tick)
	}
	if c.writer != nil {
		c.buffer.Append(tick)
	}
}

func (c *Coordinator) onTimer(ctx context.Context, f schedule.Firing) {
	if !c.sched.Current(f) {
		return
	}
	if f.Rollover() {
		c.tradingDay.Store(schedule.TradingDay(f.Due, c.cal.Location()))
		c.logger.Info("Trading day rollover", zap.String("trading_day", c.TradingDay()))
		c.arm(f.Due)
		return
	}

	cohort, ok := c.sched.Cohort(f.Index)
	if !ok {
		return
	}
	if c.State() == StateActive && c.writer != nil {
		res := c.writer.Flush(ctx, cohort)
		c.logger.Info("Cohort flushed",
			zap.String("instant", cohort.Instant.String()),
			zap.Int("written", res.Written),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Int("ticks", res.Ticks),
		)
	}
	c.sched.Rearm(f.Index)
}

func (c *Coordinator) logStatus() {
	c.logger.Info("current buffered ticks",
		zap.Int("count", c.buffer.CountAll()),
		zap.Uint64("accepted", c.accepted.Load()),
		zap.Uint64("rejected", c.rejected.Load()),
		zap.String("state", c.State().String()),
	)
}
