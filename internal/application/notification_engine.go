package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hms-project/hmsctl/internal/domain"
	"github.com/hms-project/hmsctl/internal/ports"
)

const (
	DefaultPollInterval = 15 * time.Second
	DefaultMaxNotices   = 200

	refundNoticeMessage     = "Your registration fee can be refunded"
	visitTodayNoticeMessage = "Please visit the hospital today"
	defaultPaymentType      = "payment"
)

var (
	ErrEngineDisabled  = errors.New("notification engine disabled")
	ErrCycleInProgress = errors.New("reconciliation cycle in progress")
)

// SessionReader is the read-only view of the session the engine needs.
type SessionReader interface {
	IsAuthenticated() bool
	CurrentRole() domain.Role
}

type EngineOption func(*NotificationEngine)

// WithLocation sets the calendar used to decide which visits are today.
func WithLocation(location *time.Location) EngineOption {
	return func(e *NotificationEngine) {
		if location != nil {
			e.location = location
		}
	}
}

func WithMaxNotices(n int) EngineOption {
	return func(e *NotificationEngine) {
		if n > 0 {
			e.maxNotices = n
		}
	}
}

// NotificationEngine polls the patient's payments and registrations and keeps the derived notices.
type NotificationEngine struct {
	session    SessionReader
	api        ports.PatientAPI
	clock      ports.Clock
	logger     *slog.Logger
	location   *time.Location
	maxNotices int

	inFlight atomic.Bool

	mu             sync.Mutex
	notices        []domain.Notice
	subscribers    map[int]chan []domain.Notice
	nextSubscriber int
	cancel         context.CancelFunc
	done           chan struct{}
}

func NewNotificationEngine(session SessionReader, api ports.PatientAPI, clock ports.Clock, logger *slog.Logger, opts ...EngineOption) *NotificationEngine {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	engine := &NotificationEngine{
		session:     session,
		api:         api,
		clock:       clock,
		logger:      loggerOrDiscard(logger),
		location:    time.Local,
		maxNotices:  DefaultMaxNotices,
		subscribers: map[int]chan []domain.Notice{},
	}
	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Enabled reports whether a patient is signed in.
func (e *NotificationEngine) Enabled() bool {
	return e.session.IsAuthenticated() && e.session.CurrentRole() == domain.RolePatient
}

// Start runs one cycle right away and then one per interval. It returns false when the engine
// is already running or disabled.
func (e *NotificationEngine) Start(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runningLocked() || !e.Enabled() {
		return false
	}

	if e.cancel != nil {
		e.cancel()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ticker := e.clock.NewTicker(interval)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	go e.poll(loopCtx, ticker, done)

	return true
}

// Stop cancels polling, including an in-flight fetch, and waits for the loop to exit.
func (e *NotificationEngine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (e *NotificationEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runningLocked()
}

// Sync runs a single reconciliation cycle. On any error the current notices are left as they were.
func (e *NotificationEngine) Sync(ctx context.Context) error {
	if !e.Enabled() {
		return ErrEngineDisabled
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrCycleInProgress
	}
	defer e.inFlight.Store(false)

	var (
		payments      []domain.Payment
		registrations []domain.Registration
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		list, err := e.api.ListPayments(groupCtx)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		payments = list
		return nil
	})
	group.Go(func() error {
		list, err := e.api.ListRegistrations(groupCtx)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		registrations = list
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}

	notices := e.reconcile(e.clock.Now(), payments, registrations)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = notices
	e.publishLocked()

	return nil
}

func (e *NotificationEngine) Notices() []domain.Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.notices)
}

func (e *NotificationEngine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = nil
	e.publishLocked()
}

// Subscribe returns a channel holding the latest notice list. A reader that falls behind only
// sees the newest list. The returned func unsubscribes and closes the channel.
func (e *NotificationEngine) Subscribe() (<-chan []domain.Notice, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubscriber
	e.nextSubscriber++

	ch := make(chan []domain.Notice, 1)
	ch <- slices.Clone(e.notices)
	e.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subscribers, id)
			close(ch)
		})
	}

	return ch, unsubscribe
}

func (e *NotificationEngine) poll(ctx context.Context, ticker ports.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	e.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			e.runCycle(ctx)
		}
	}
}

func (e *NotificationEngine) runCycle(ctx context.Context) {
	err := e.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrEngineDisabled), errors.Is(err, ErrCycleInProgress):
		e.logger.Debug("reconciliation cycle skipped", "reason", err)
	case ctx.Err() != nil:
		e.logger.Debug("reconciliation cycle cancelled", "error", err)
	default:
		e.logger.Warn("reconciliation cycle failed", "error", err)
	}
}

func (e *NotificationEngine) runningLocked() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

func (e *NotificationEngine) publishLocked() {
	for _, ch := range e.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- slices.Clone(e.notices)
	}
}

func (e *NotificationEngine) reconcile(now time.Time, payments []domain.Payment, registrations []domain.Registration) []domain.Notice {
	candidates := make([]domain.Payment, 0, len(payments))
	for _, payment := range payments {
		if payment.AwaitsAction() {
			candidates = append(candidates, payment)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].Time.Equal(candidates[j].Time) {
			return candidates[i].Time.After(candidates[j].Time)
		}
		return candidates[i].ID > candidates[j].ID
	})

	merged := newNoticeSet()
	for _, payment := range candidates {
		id := payment.ID
		merged.put(domain.Notice{
			Key:       domain.PaymentNoticeKey(id),
			Kind:      domain.NoticeKindPayment,
			Message:   paymentMessage(payment),
			CreatedAt: now,
			PaymentID: &id,
		})
	}

	today := now.In(e.location).Format(time.DateOnly)
	for _, registration := range registrations {
		if registration.VisitDay() != today || registration.Status.Normalize() != domain.RegistrationStatusQueued {
			continue
		}
		id := registration.ID
		merged.put(domain.Notice{
			Key:            domain.RegistrationNoticeKey(id),
			Kind:           domain.NoticeKindRegistration,
			Message:        visitTodayNoticeMessage,
			CreatedAt:      now,
			RegistrationID: &id,
		})
	}

	notices := merged.list()
	if len(notices) > e.maxNotices {
		notices = notices[:e.maxNotices]
	}
	return notices
}

func paymentMessage(payment domain.Payment) string {
	if payment.RefundableRegistrationFee() {
		return refundNoticeMessage
	}

	kind := strings.TrimSpace(payment.Type)
	if kind == "" {
		kind = defaultPaymentType
	}
	return fmt.Sprintf("Pending payment of type %s", kind)
}

// noticeSet keeps the first position of a key and the last value written to it.
type noticeSet struct {
	index   map[string]int
	notices []domain.Notice
}

func newNoticeSet() *noticeSet {
	return &noticeSet{index: map[string]int{}}
}

func (s *noticeSet) put(notice domain.Notice) {
	if i, ok := s.index[notice.Key]; ok {
		s.notices[i] = notice
		return
	}
	s.index[notice.Key] = len(s.notices)
	s.notices = append(s.notices, notice)
}

func (s *noticeSet) list() []domain.Notice {
	return s.notices
}
