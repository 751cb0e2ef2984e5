// Package delivery turns a subscriber into messages. It owns the two flows
// the product has: the welcome + first letter sent on subscribe, and the
// daily broadcast to everyone.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nyashahama/love-letters-backend/internal/email"
	"github.com/nyashahama/love-letters-backend/internal/letter"
	"github.com/nyashahama/love-letters-backend/internal/push"
	"github.com/nyashahama/love-letters-backend/internal/store"
	"github.com/nyashahama/love-letters-backend/internal/subscriber"
	"github.com/nyashahama/love-letters-backend/internal/whatsapp"
)

// ErrConfirmationFailed is returned by Subscribe when no channel managed to
// deliver its welcome message.
var ErrConfirmationFailed = errors.New("delivery: confirmation failed on every channel")

// Store is the persistence the orchestrator needs.
type Store interface {
	UpsertSubscriber(ctx context.Context, sub subscriber.Subscriber) (store.UpsertOutcome, error)
	ListSubscribers(ctx context.Context) ([]subscriber.Subscriber, error)
	RecordDelivery(ctx context.Context, rec store.DeliveryRecord) error
	RecordDeliveries(ctx context.Context, recs []store.DeliveryRecord) error
}

// LetterSource writes letters; *letter.Generator satisfies it.
type LetterSource interface {
	Generate(ctx context.Context, variant letter.Variant) letter.Letter
}

// Notifier fans a notification out to push subscribers; *push.Broadcaster
// satisfies it.
type Notifier interface {
	NotifyAll(ctx context.Context, n push.Notification) ([]push.Result, error)
}

// Config tunes the broadcast.
type Config struct {
	// BroadcastChannels are the channels the daily broadcast uses. Defaults
	// to email only.
	BroadcastChannels []subscriber.Channel
	// Concurrency bounds in-flight sends during a broadcast.
	Concurrency int
	// PushOnBroadcast also notifies every push subscriber after a broadcast.
	PushOnBroadcast bool
	// GenerateTimeout caps letter generation. Default: 40 seconds.
	GenerateTimeout time.Duration
}

// Orchestrator runs both delivery flows.
type Orchestrator struct {
	store    Store
	letters  LetterSource
	channels map[subscriber.Channel]channel
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

// New wires an Orchestrator. notifier may be nil when push is not configured.
func New(
	st Store,
	letters LetterSource,
	mail email.Sender,
	wa whatsapp.Sender,
	notifier Notifier,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if len(cfg.BroadcastChannels) == 0 {
		cfg.BroadcastChannels = []subscriber.Channel{subscriber.ChannelEmail}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 40 * time.Second
	}
	return &Orchestrator{
		store:   st,
		letters: letters,
		channels: map[subscriber.Channel]channel{
			subscriber.ChannelEmail:    emailChannel{s: mail},
			subscriber.ChannelWhatsApp: whatsappChannel{s: wa},
		},
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// ─── ON SUBSCRIBE ─────────────────────────────────────────────────────────────

// Request is a subscription form submission.
type Request struct {
	Email       string
	PhoneNumber string
	Preference  subscriber.Preference
}

// ChannelResult is the outcome of the welcome flow on one channel.
type ChannelResult struct {
	Channel          subscriber.Channel `json:"channel"`
	ConfirmationSent bool               `json:"confirmationSent"`
	LoveLetterSent   bool               `json:"loveLetterSent"`
	Error            string             `json:"error,omitempty"`
}

// SubscribeResult is what Subscribe did.
type SubscribeResult struct {
	Subscriber subscriber.Subscriber
	Outcome    store.UpsertOutcome
	Letter     letter.Letter
	Channels   []ChannelResult
}

// ConfirmationSent reports whether any channel delivered its welcome.
func (r SubscribeResult) ConfirmationSent() bool {
	for _, c := range r.Channels {
		if c.ConfirmationSent {
			return true
		}
	}
	return false
}

// LoveLetterSent reports whether any channel delivered the first letter.
func (r SubscribeResult) LoveLetterSent() bool {
	for _, c := range r.Channels {
		if c.LoveLetterSent {
			return true
		}
	}
	return false
}

// Subscribe validates and stores the subscriber, then sends the welcome and
// first letter on every channel its preference selects. Channels run in
// dispatch-table order. A failed welcome ends that channel; a failed letter
// is recorded and ignored. The error is non-nil only for validation, a hard
// store failure, or when every channel's welcome failed.
func (o *Orchestrator) Subscribe(ctx context.Context, req Request) (SubscribeResult, error) {
	sub, err := subscriber.New(req.Email, req.PhoneNumber, req.Preference)
	if err != nil {
		return SubscribeResult{}, err
	}

	outcome, err := o.store.UpsertSubscriber(ctx, sub)
	if err != nil {
		return SubscribeResult{}, fmt.Errorf("delivery: store subscriber: %w", err)
	}
	if outcome == store.OutcomeAlreadyExists {
		o.logger.Info("subscriber already exists, continuing", "preference", sub.Preference)
	}

	variant := letter.VariantEmail
	if sub.Preference == subscriber.PreferenceWhatsApp {
		variant = letter.VariantWhatsApp
	}
	l := o.generate(ctx, variant)

	res := SubscribeResult{Subscriber: sub, Outcome: outcome, Letter: l}
	var errs []error

	for _, ch := range sub.Channels() {
		cr, err := o.welcome(ctx, ch, sub, l)
		res.Channels = append(res.Channels, cr)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if !res.ConfirmationSent() {
		return res, errors.Join(append([]error{ErrConfirmationFailed}, errs...)...)
	}
	return res, nil
}

func (o *Orchestrator) welcome(ctx context.Context, ch subscriber.Channel, sub subscriber.Subscriber, l letter.Letter) (ChannelResult, error) {
	cr := ChannelResult{Channel: ch}
	sender, ok := o.channels[ch]
	if !ok {
		err := fmt.Errorf("delivery: no sender for channel %q", ch)
		cr.Error = err.Error()
		return cr, err
	}
	to := sender.recipient(sub)

	err := sender.sendWelcome(ctx, sub)
	o.record(ctx, store.DeliveryRecord{Channel: string(ch), Kind: store.KindWelcome, Recipient: to, Err: err})
	if err != nil {
		o.logger.Error("welcome failed", "channel", ch, "error", err)
		cr.Error = fmt.Sprintf("%s welcome message failed: %v", ch, err)
		return cr, fmt.Errorf("delivery: %s welcome: %w", ch, err)
	}
	cr.ConfirmationSent = true

	err = sender.sendLetter(ctx, sub, l.Text, true)
	o.record(ctx, store.DeliveryRecord{
		Channel:   string(ch),
		Kind:      store.KindLetter,
		Recipient: to,
		Err:       err,
		Meta:      letterMeta(l),
	})
	if err != nil {
		o.logger.Warn("first letter failed", "channel", ch, "error", err)
		cr.Error = fmt.Sprintf("%s love letter failed: %v", ch, err)
		return cr, nil
	}
	cr.LoveLetterSent = true
	return cr, nil
}

// generate runs the letter source under its own deadline: GenerateTimeout,
// and never more than half of what is left of ctx. A model that runs out of
// time yields the fallback letter while the sends still have time to run.
func (o *Orchestrator) generate(ctx context.Context, variant letter.Variant) letter.Letter {
	budget := o.cfg.GenerateTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if half := time.Until(deadline) / 2; half < budget {
			budget = half
		}
	}
	genCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return o.letters.Generate(genCtx, variant)
}

func (o *Orchestrator) record(ctx context.Context, rec store.DeliveryRecord) {
	if err := o.store.RecordDelivery(ctx, rec); err != nil {
		o.logger.Warn("failed to record delivery", "channel", rec.Channel, "kind", rec.Kind, "error", err)
	}
}

func letterMeta(l letter.Letter) map[string]any {
	return map[string]any{
		"variant":      l.Variant,
		"prompt_index": l.PromptIndex,
		"fallback":     l.Fallback,
	}
}

// ─── DAILY BROADCAST ──────────────────────────────────────────────────────────

// PushStats summarises the push leg of a broadcast.
type PushStats struct {
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// BroadcastStats summarises one broadcast. SuccessCount+ErrorCount is the
// number of sends attempted; TotalSubscribers counts eligible subscribers.
type BroadcastStats struct {
	RunID            uuid.UUID  `json:"-"`
	SuccessCount     int        `json:"successCount"`
	ErrorCount       int        `json:"errorCount"`
	TotalSubscribers int        `json:"totalSubscribers"`
	Push             *PushStats `json:"push,omitempty"`
}

type job struct {
	sub subscriber.Subscriber
	ch  subscriber.Channel
}

// Broadcast sends today's letter to every eligible subscriber, outside any
// scheduled run.
func (o *Orchestrator) Broadcast(ctx context.Context) (BroadcastStats, error) {
	return o.BroadcastRun(ctx, uuid.Nil)
}

// BroadcastRun is Broadcast with the delivery log tied to runID.
func (o *Orchestrator) BroadcastRun(ctx context.Context, runID uuid.UUID) (BroadcastStats, error) {
	stats := BroadcastStats{RunID: runID}

	subs, err := o.store.ListSubscribers(ctx)
	if err != nil {
		return stats, fmt.Errorf("delivery: list subscribers: %w", err)
	}

	var jobs []job
	for _, sub := range subs {
		eligible := false
		for _, ch := range o.cfg.BroadcastChannels {
			if _, ok := o.channels[ch]; ok && sub.EligibleFor(ch) {
				jobs = append(jobs, job{sub: sub, ch: ch})
				eligible = true
			}
		}
		if eligible {
			stats.TotalSubscribers++
		}
	}

	var recs []store.DeliveryRecord

	if len(jobs) == 0 {
		o.logger.Info("no subscribers to send to")
	} else {
		l := o.generate(ctx, letter.VariantEmail)
		o.logger.Info("broadcast starting", "subscribers", stats.TotalSubscribers, "sends", len(jobs), "fallback_letter", l.Fallback)

		var success, failed atomic.Int64
		var mu sync.Mutex
		meta := letterMeta(l)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.Concurrency)
		for _, j := range jobs {
			g.Go(func() error {
				sender := o.channels[j.ch]
				err := sender.sendLetter(gctx, j.sub, l.Text, false)
				if err != nil {
					failed.Add(1)
					o.logger.Error("broadcast send failed", "channel", j.ch, "subscriber_id", j.sub.ID, "error", err)
				} else {
					success.Add(1)
				}
				mu.Lock()
				recs = append(recs, store.DeliveryRecord{
					RunID:     runID,
					Channel:   string(j.ch),
					Kind:      store.KindBroadcast,
					Recipient: sender.recipient(j.sub),
					Err:       err,
					Meta:      meta,
				})
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		stats.SuccessCount = int(success.Load())
		stats.ErrorCount = int(failed.Load())
	}

	if o.cfg.PushOnBroadcast && o.notifier != nil {
		ps, pushRecs := o.notify(ctx, runID)
		stats.Push = &ps
		recs = append(recs, pushRecs...)
	}

	if err := o.store.RecordDeliveries(ctx, recs); err != nil {
		o.logger.Warn("failed to record broadcast deliveries", "run_id", runID, "count", len(recs), "error", err)
	}

	o.logger.Info("broadcast complete",
		"run_id", runID,
		"success", stats.SuccessCount,
		"errors", stats.ErrorCount,
		"subscribers", stats.TotalSubscribers,
	)
	return stats, nil
}

func (o *Orchestrator) notify(ctx context.Context, runID uuid.UUID) (PushStats, []store.DeliveryRecord) {
	var ps PushStats
	results, err := o.notifier.NotifyAll(ctx, push.Notification{})
	if err != nil {
		o.logger.Warn("push broadcast failed", "error", err)
		ps.Error = err.Error()
		return ps, nil
	}

	recs := make([]store.DeliveryRecord, 0, len(results))
	for _, r := range results {
		ps.Attempted++
		var rerr error
		if r.Success {
			ps.Succeeded++
		} else {
			rerr = errors.New(r.Error)
		}
		recs = append(recs, store.DeliveryRecord{
			RunID:     runID,
			Channel:   "push",
			Kind:      store.KindPush,
			Recipient: r.Endpoint,
			Err:       rerr,
			Meta:      map[string]any{"status": r.Status},
		})
	}
	return ps, recs
}
