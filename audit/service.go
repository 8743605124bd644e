// Package audit keeps a durable trail of quest state transitions and
// account actions.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/mission"
	"github.com/kasuganosora/skyquest/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Owner is the bus subscription owner used by Attach.
const Owner = "audit"

// Actions written by the service.
const (
	ActionQuestState = "quest_state_changed"
	ActionLogin      = "login"
	ActionLogout     = "logout"
)

type traceKey struct{}

// WithTraceID returns a context carrying a request trace id that Attach
// copies onto quest transition entries.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Entry holds one audit event to be logged.
type Entry struct {
	TraceID    string
	AccountID  *int64
	Action     string
	QuestID    string
	TemplateID string
	From       string
	To         string
	Detail     interface{}
	IP         string
}

// Options tunes batching.
type Options struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

func (o *Options) applyDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
}

// Service writes audit entries asynchronously in batches.
type Service struct {
	db       *gorm.DB
	ch       chan *model.AuditLog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	opts     Options
	logger   *zap.Logger
}

// New creates a Service and starts its background worker.
func New(db *gorm.DB, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, opts.QueueSize),
		stopCh: make(chan struct{}),
		opts:   opts,
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Attach records every MISSION_STATE_CHANGED emitted on bus.
func (svc *Service) Attach(bus *event.Bus) {
	bus.Subscribe(event.MissionStateChanged, 900, Owner, func(ctx context.Context, ev event.Event) {
		sc, ok := ev.Data.(*mission.StateChange)
		if !ok {
			return
		}
		svc.Log(Entry{
			TraceID:    traceID(ctx),
			Action:     ActionQuestState,
			QuestID:    sc.QuestID,
			TemplateID: sc.TemplateID,
			From:       string(sc.From),
			To:         string(sc.To),
			Detail:     map[string]string{"type": string(sc.Type), "reason": sc.Reason},
		})
	})
}

// Log enqueues an entry. Entries are dropped when the queue is full.
func (svc *Service) Log(entry Entry) {
	var detail datatypes.JSON
	if entry.Detail != nil {
		if b, err := json.Marshal(entry.Detail); err == nil {
			detail = datatypes.JSON(b)
		}
	}
	record := &model.AuditLog{
		TraceID:    entry.TraceID,
		AccountID:  entry.AccountID,
		Action:     entry.Action,
		QuestID:    entry.QuestID,
		TemplateID: entry.TemplateID,
		FromStatus: entry.From,
		ToStatus:   entry.To,
		Detail:     detail,
		IP:         entry.IP,
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action), zap.String("quest_id", entry.QuestID))
	}
}

// Stop flushes queued entries and waits for the worker to exit.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, svc.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= svc.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
