package audit

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/skyquest/game/event"
	"github.com/kasuganosora/skyquest/game/mission"
	"github.com/kasuganosora/skyquest/game/quest"
	"github.com/kasuganosora/skyquest/model"
	"github.com/kasuganosora/skyquest/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLog_FlushedOnStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{}, zaptest.NewLogger(t))

	accountID := int64(2)
	svc.Log(Entry{
		TraceID:   "trace-123",
		AccountID: &accountID,
		Action:    ActionLogin,
		Detail:    map[string]string{"profile": "kid"},
		IP:        "127.0.0.1",
	})
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, ActionLogin, logs[0].Action)
	assert.Equal(t, int64(2), *logs[0].AccountID)
	assert.JSONEq(t, `{"profile":"kid"}`, string(logs[0].Detail))
}

func TestLog_BatchAndTimer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{BatchSize: 5, FlushInterval: 20 * time.Millisecond}, zaptest.NewLogger(t))
	for i := 0; i < 12; i++ {
		svc.Log(Entry{Action: "batch"})
	}
	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.AuditLog{}).Count(&count)
		return count == 12
	}, time.Second, 10*time.Millisecond)
	svc.Stop(context.Background())
}

func TestLog_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := &Service{db: db, ch: make(chan *model.AuditLog, 1), stopCh: make(chan struct{}), logger: zaptest.NewLogger(t)}
	svc.Log(Entry{Action: "a"})
	svc.Log(Entry{Action: "b"})
	assert.Len(t, svc.ch, 1)
}

func TestStop_Idempotent(t *testing.T) {
	svc := New(testutil.SetupTestDB(t), Options{}, zaptest.NewLogger(t))
	svc.Stop(context.Background())
	svc.Stop(context.Background())
}

func TestAttach_RecordsQuestTransitions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, Options{}, zaptest.NewLogger(t))
	bus := event.NewBus(zaptest.NewLogger(t))
	svc.Attach(bus)

	ctx := WithTraceID(context.Background(), "req-1")
	bus.Emit(ctx, event.MissionStateChanged, &mission.StateChange{
		QuestID: "q1", TemplateID: "deliver_package", Type: quest.TypeMain,
		From: quest.StatusOffered, To: quest.StatusActive,
	})
	bus.Emit(ctx, event.MissionStateChanged, "ignored")
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, ActionQuestState, logs[0].Action)
	assert.Equal(t, "req-1", logs[0].TraceID)
	assert.Equal(t, "q1", logs[0].QuestID)
	assert.Equal(t, "offered", logs[0].FromStatus)
	assert.Equal(t, "active", logs[0].ToStatus)
}
