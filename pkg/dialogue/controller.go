package dialogue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/conciliate/pkg/events"
	"github.com/go-go-golems/conciliate/pkg/metrics"
	"github.com/go-go-golems/conciliate/pkg/termination"
	"github.com/go-go-golems/conciliate/pkg/transcript"
)

const DefaultRoundDelay = 1500 * time.Millisecond

// Controller drives the discovery dialogue for one session at a time.
//
// It owns:
// - the session transcript (written only while holding the cycle lock)
// - the cycle lock, shared by the automatic and the manual path
// - the activity flag the operator toggles with Start/Stop
// - the single pending scheduler entry for the next automatic round
//
// Any remote failure halts automation for the session; nothing is retried.
type Controller struct {
	seeker      Seeker
	responder   Responder
	detector    *termination.Detector
	scheduler   Scheduler
	sink        events.EventSink
	metrics     *metrics.Collector
	delay       time.Duration
	callTimeout time.Duration
	maxRounds   int

	lock   CycleLock
	active ActivityFlag

	mu         sync.Mutex
	sessionID  string
	generation uint64
	transcript *transcript.Transcript
	state      State
	stopped    bool
	failed     bool
	terminated bool
	lastErr    error
	rounds     int
	baseCtx    context.Context
	pendingID  uint64
	pending    func()
	changed    chan struct{}
}

type Option func(*Controller)

func WithDetector(d *termination.Detector) Option {
	return func(c *Controller) {
		c.detector = d
	}
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

func WithEventSink(sink events.EventSink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithRoundDelay sets the pause between the end of a round and the next one.
func WithRoundDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = d
	}
}

// WithCallTimeout bounds each remote call. A timeout is a failure like any
// other. Zero means no bound.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.callTimeout = d
	}
}

// WithMaxRounds stops automation once n rounds have completed. Zero means
// no limit.
func WithMaxRounds(n int) Option {
	return func(c *Controller) {
		c.maxRounds = n
	}
}

// WithSeed sets the turns a fresh session starts with, e.g. a greeting.
func WithSeed(seed ...transcript.Turn) Option {
	return func(c *Controller) {
		c.transcript = transcript.New(seed...)
	}
}

func NewController(seeker Seeker, responder Responder, options ...Option) (*Controller, error) {
	if seeker == nil {
		return nil, ErrNilSeeker
	}
	if responder == nil {
		return nil, ErrNilResponder
	}
	c := &Controller{
		seeker:    seeker,
		responder: responder,
		detector:  termination.NewDetector(),
		scheduler: TimerScheduler{},
		sink:      events.NullSink{},
		delay:     DefaultRoundDelay,
		sessionID: uuid.NewString(),
		changed:   make(chan struct{}),
	}
	for _, o := range options {
		o(c)
	}
	if c.sink == nil {
		c.sink = events.NullSink{}
	}
	if c.scheduler == nil {
		c.scheduler = TimerScheduler{}
	}
	if c.transcript == nil {
		c.transcript = transcript.New()
	}
	return c, nil
}

// Start enables automation and runs the first round on the calling
// goroutine. Later rounds run from the scheduler using ctx, so ctx should
// live as long as the session (not a single request).
//
// Start is rejected without side effects while a round is in flight, when
// automation is already running, after termination, or after a failure.
func (c *Controller) Start(ctx context.Context) (Outcome, error) {
	if reason := c.admit(ctx); reason != "" {
		return OutcomeRejected, nil
	}
	return c.round(ctx)
}

// Launch is Start with the first round run on its own goroutine. Admission is
// decided before Launch returns: OutcomeStarted when the round was launched,
// OutcomeRejected and the reason otherwise. done, if not nil, receives the
// result of the first round.
func (c *Controller) Launch(ctx context.Context, done func(Outcome, error)) (Outcome, string) {
	if reason := c.admit(ctx); reason != "" {
		return OutcomeRejected, reason
	}
	go func() {
		outcome, err := c.round(ctx)
		if done != nil {
			done(outcome, err)
		}
	}()
	return OutcomeStarted, ""
}

// admit raises the activity flag and returns with the cycle lock held, or
// returns the reason Start is refused. Policy checks run before the lock is
// touched, so a refused Start never holds it.
func (c *Controller) admit(ctx context.Context) string {
	c.mu.Lock()
	reason := c.startBlockedLocked()
	c.mu.Unlock()
	if reason != "" {
		c.reject("start", reason)
		return reason
	}

	if !c.lock.TryAcquire() {
		c.reject("start", ReasonBusy)
		return ReasonBusy
	}

	c.mu.Lock()
	if reason := c.startBlockedLocked(); reason != "" {
		c.mu.Unlock()
		c.release()
		c.reject("start", reason)
		return reason
	}
	c.active.Set(true)
	c.stopped = false
	c.baseCtx = ctx
	c.notifyLocked()
	meta := c.metaLocked()
	c.mu.Unlock()

	c.metrics.SetAutomationActive(true)
	c.publish(events.NewInfoEvent(events.EventTypeAutomationStarted, meta, ""))
	c.logger().Debug().Msg("automation started")
	return ""
}

func (c *Controller) startBlockedLocked() string {
	switch {
	case c.terminated || c.detector.IsTerminated(c.transcript.Snapshot()):
		c.terminated = true
		return ReasonTerminated
	case c.failed:
		return ReasonFailed
	case c.active.IsActive():
		return ReasonAutomationActive
	}
	return ""
}

// Stop turns automation off. A round already in flight completes its current
// remote call; a question that arrives after Stop is discarded, and no
// further round is scheduled. Stop returns false if automation was not active.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if !c.active.IsActive() {
		c.mu.Unlock()
		return false
	}
	c.active.Set(false)
	c.stopped = true
	c.cancelPendingLocked()
	c.notifyLocked()
	meta := c.metaLocked()
	c.mu.Unlock()

	c.metrics.SetAutomationActive(false)
	c.publish(events.NewInfoEvent(events.EventTypeAutomationStopped, meta, ""))
	c.logger().Debug().Msg("automation stopped")
	return true
}

// SendManual appends a human question and asks the responder once. It is a
// no-op (OutcomeRejected) while automation is active, while any round holds
// the lock, after termination, or when text is blank.
func (c *Controller) SendManual(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.reject("manual", ReasonBlank)
		return OutcomeRejected, nil
	}
	if c.active.IsActive() {
		c.reject("manual", ReasonAutomationActive)
		return OutcomeRejected, nil
	}
	if !c.lock.TryAcquire() {
		c.reject("manual", ReasonBusy)
		return OutcomeRejected, nil
	}

	c.mu.Lock()
	// Start takes the lock before raising the flag, so holding the lock and
	// seeing the flag down means automation cannot begin until we release.
	if c.active.IsActive() {
		c.mu.Unlock()
		c.release()
		c.reject("manual", ReasonAutomationActive)
		return OutcomeRejected, nil
	}
	tr := c.transcript
	if c.terminated || c.detector.IsTerminated(tr.Snapshot()) {
		c.terminated = true
		c.mu.Unlock()
		c.release()
		c.reject("manual", ReasonTerminated)
		return OutcomeRejected, nil
	}
	c.rounds++
	round := c.rounds
	gen := c.generation
	c.setStateLocked(StateAwaitingResponse)
	meta := c.metaLocked()
	c.mu.Unlock()

	q := transcript.NewSeekerTurn(text, transcript.OriginHuman)
	q.Metadata = map[string]any{transcript.MetaRound: round}
	q = tr.Append(q)
	c.publish(events.NewTurnEvent(events.EventTypeManual, meta, q))

	if err := c.respond(ctx, tr, round, meta); err != nil {
		return c.fail(gen, PhaseResponder, round, err)
	}

	return c.complete(gen, tr, round, meta, false)
}

// Reset discards the transcript and starts a new session seeded with seed.
// It is rejected while a round holds the lock.
func (c *Controller) Reset(seed ...transcript.Turn) bool {
	if !c.lock.TryAcquire() {
		c.reject("reset", ReasonBusy)
		return false
	}

	c.mu.Lock()
	c.cancelPendingLocked()
	c.active.Set(false)
	c.generation++
	c.sessionID = uuid.NewString()
	c.transcript = transcript.New(seed...)
	c.state = StateIdle
	c.stopped = false
	c.failed = false
	c.terminated = false
	c.lastErr = nil
	c.rounds = 0
	meta := c.metaLocked()
	c.mu.Unlock()

	c.release()
	c.metrics.SetAutomationActive(false)
	c.publish(events.NewInfoEvent(events.EventTypeReset, meta, ""))
	return true
}

// round runs one automatic round. It is entered with the cycle lock held.
func (c *Controller) round(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	tr := c.transcript
	if !c.active.IsActive() || c.terminated || c.detector.IsTerminated(tr.Snapshot()) {
		c.mu.Unlock()
		c.release()
		c.metrics.RoundFinished(OutcomeSkipped.String())
		return OutcomeSkipped, nil
	}
	c.rounds++
	round := c.rounds
	gen := c.generation
	c.setStateLocked(StateAwaitingQuestion)
	meta := c.metaLocked()
	c.mu.Unlock()

	c.publish(events.NewInfoEvent(events.EventTypeRoundStarted, meta, ""))
	c.logger().Debug().Int("round", round).Msg("round started")

	question, err := c.ask(ctx, tr, round)
	if err != nil {
		return c.fail(gen, PhaseSeeker, round, err)
	}

	q := transcript.NewSeekerTurn(question, transcript.OriginAutomated)
	q.Metadata = map[string]any{transcript.MetaRound: round}

	// Stop flips the flag under mu, so checking and appending under mu means a
	// question is either recorded before Stop returns or not at all.
	c.mu.Lock()
	if !c.active.IsActive() {
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		c.publish(events.NewTurnEvent(events.EventTypeQuestionDiscarded, meta, q))
		c.metrics.RoundFinished(OutcomeDiscarded.String())
		c.logger().Warn().Int("round", round).Msg("automation stopped while seeker was running, discarding question")
		c.release()
		return OutcomeDiscarded, nil
	}
	q = tr.Append(q)
	c.setStateLocked(StateAwaitingResponse)
	c.mu.Unlock()

	c.publish(events.NewTurnEvent(events.EventTypeQuestion, meta, q))

	if err := c.respond(ctx, tr, round, meta); err != nil {
		return c.fail(gen, PhaseResponder, round, err)
	}

	return c.complete(gen, tr, round, meta, true)
}

func (c *Controller) ask(ctx context.Context, tr *transcript.Transcript, round int) (string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	question, err := c.seeker.AskSeeker(callCtx, tr.Snapshot())
	if err == nil && strings.TrimSpace(question) == "" {
		err = ErrEmptyQuestion
	}
	c.metrics.ObserveCall(string(PhaseSeeker), time.Since(start), err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(question), nil
}

// respond calls the responder and appends its turns.
func (c *Controller) respond(ctx context.Context, tr *transcript.Transcript, round int, meta events.EventMetadata) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	turns, err := c.responder.AskResponder(callCtx, tr.Snapshot())
	if err == nil {
		err = validateResponse(turns)
	}
	c.metrics.ObserveCall(string(PhaseResponder), time.Since(start), err)
	if err != nil {
		return err
	}

	for _, t := range turns {
		t.Role = transcript.RoleResponder
		t.Origin = ""
		if t.Metadata == nil {
			t.Metadata = map[string]any{}
		}
		t.Metadata[transcript.MetaRound] = round
		t = tr.Append(t)
		c.publish(events.NewTurnEvent(events.EventTypeResponse, meta, t))
	}
	return nil
}

func validateResponse(turns []transcript.Turn) error {
	if len(turns) == 0 {
		return ErrEmptyResponse
	}
	for i, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			return errors.Wrapf(ErrMalformedResponse, "turn %d has no content", i)
		}
		if t.Role != "" && t.Role != transcript.RoleResponder {
			return errors.Wrapf(ErrMalformedResponse, "turn %d has role %q", i, t.Role)
		}
	}
	return nil
}

// complete finishes a successful round. Terminal events are published before
// the lock is released so that Wait observes them. Automatic rounds then
// schedule their successor.
func (c *Controller) complete(gen uint64, tr *transcript.Transcript, round int, meta events.EventMetadata, automatic bool) (Outcome, error) {
	terminated := c.detector.IsTerminated(tr.Snapshot())
	limitReached := false

	c.mu.Lock()
	current := gen == c.generation
	c.setStateLocked(StateCompleting)
	switch {
	case terminated && current:
		c.terminated = true
		c.active.Set(false)
		c.cancelPendingLocked()
		c.setStateLocked(StateHalted)
	case automatic && current && c.active.IsActive() && c.maxRounds > 0 && round >= c.maxRounds:
		limitReached = true
		c.active.Set(false)
		c.stopped = true
		c.cancelPendingLocked()
	}
	c.mu.Unlock()

	if terminated {
		c.metrics.SetAutomationActive(false)
		c.metrics.RoundFinished(OutcomeTerminated.String())
		c.publish(events.NewInfoEvent(events.EventTypeTerminated, meta, "termination marker received"))
		c.logger().Info().Int("round", round).Msg("dialogue terminated")
		c.release()
		return OutcomeTerminated, nil
	}
	if limitReached {
		c.metrics.SetAutomationActive(false)
		c.publish(events.NewInfoEvent(events.EventTypeAutomationStopped, meta, "round limit reached"))
		c.logger().Info().Int("round", round).Msg("round limit reached, automation stopped")
	}
	c.release()

	c.mu.Lock()
	if c.state == StateCompleting && gen == c.generation {
		c.setStateLocked(StateIdle)
	}
	if automatic && gen == c.generation && c.active.IsActive() {
		c.scheduleNextLocked(gen)
	}
	c.mu.Unlock()

	c.metrics.RoundFinished(OutcomeCompleted.String())
	return OutcomeCompleted, nil
}

// fail halts automation for the session. It is entered with the lock held.
func (c *Controller) fail(gen uint64, phase Phase, round int, err error) (Outcome, error) {
	rerr := &RoundError{Phase: phase, Round: round, Err: err}

	c.mu.Lock()
	if gen == c.generation {
		c.active.Set(false)
		c.failed = true
		c.lastErr = rerr
		c.cancelPendingLocked()
		c.setStateLocked(StateHalted)
	}
	meta := c.metaLocked()
	c.mu.Unlock()

	c.metrics.SetAutomationActive(false)
	c.metrics.RoundFinished(OutcomeFailed.String())
	c.publish(events.NewFailedEvent(meta, string(phase), err))
	c.logger().Error().Err(err).Int("round", round).Str("phase", string(phase)).Msg("round failed, automation disabled")
	c.release()

	return OutcomeFailed, rerr
}

// scheduleNextLocked registers the next automatic round. There is at most one
// pending entry; the guard re-checks at fire time what round() checks at start.
func (c *Controller) scheduleNextLocked(gen uint64) {
	c.cancelPendingLocked()
	c.pendingID++
	id := c.pendingID
	ctx := c.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	guard := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pendingID != id || c.pending == nil {
			return false
		}
		c.pending = nil
		c.notifyLocked()
		if !c.liveLocked(gen) {
			return false
		}
		// The lock can only be held here by a call that is about to be
		// rejected and release it. Automation is still on, so try again.
		if c.lock.IsHeld() {
			c.retryLocked(gen)
			return false
		}
		return true
	}
	run := func() {
		if !c.lock.TryAcquire() {
			c.mu.Lock()
			if c.pending == nil && c.liveLocked(gen) {
				c.retryLocked(gen)
			}
			c.mu.Unlock()
			return
		}
		// errors are recorded in LastError and published as events
		_, _ = c.round(ctx)
	}
	c.pending = c.scheduler.Schedule(c.delay, guard, run)
	c.notifyLocked()
}

// liveLocked reports whether automation of generation gen should go on.
func (c *Controller) liveLocked(gen uint64) bool {
	return gen == c.generation &&
		c.active.IsActive() &&
		!c.terminated &&
		!c.detector.IsTerminated(c.transcript.Snapshot())
}

func (c *Controller) retryLocked(gen uint64) {
	log.Debug().Str("session_id", c.sessionID).Msg("cycle lock held at fire time, rescheduling round")
	c.scheduleNextLocked(gen)
}

func (c *Controller) cancelPendingLocked() {
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.callTimeout > 0 {
		return context.WithTimeout(ctx, c.callTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) release() {
	c.lock.Release()
	c.mu.Lock()
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Controller) reject(operation, reason string) {
	c.mu.Lock()
	meta := c.metaLocked()
	c.mu.Unlock()
	c.metrics.RoundFinished(OutcomeRejected.String())
	c.publish(events.NewRejectedEvent(meta, operation, reason))
	c.logger().Debug().Str("operation", operation).Str("reason", reason).Msg("rejected")
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	c.notifyLocked()
}

func (c *Controller) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Controller) metaLocked() events.EventMetadata {
	return events.NewEventMetadata(c.sessionID, c.rounds)
}

func (c *Controller) publish(e events.Event) {
	if err := c.sink.PublishEvent(e); err != nil {
		log.Warn().Err(err).Str("event_type", string(e.Type())).Msg("failed to publish dialogue event")
	}
}

func (c *Controller) logger() *zerolog.Logger {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	l := log.With().Str("component", "dialogue").Str("session_id", sessionID).Logger()
	return &l
}
