package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/aiventure/internal/protocol"
	"github.com/mcoot/aiventure/internal/testutil"
)

func TestQueueDeliversInOrder(t *testing.T) {
	q := NewQueue(4, testutil.NopLogger())

	q.Notify(Notification{Message: "one"})
	q.Notify(Notification{Message: "two"})

	assert.Equal(t, "one", (<-q.C()).Message)
	assert.Equal(t, "two", (<-q.C()).Message)
}

func TestQueueDropsWhenFull(t *testing.T) {
	logger, logs := testutil.BufferLogger()
	q := NewQueue(1, logger)

	done := make(chan struct{})
	go func() {
		q.Notify(Notification{Message: "kept"})
		q.Notify(Notification{Message: "dropped", Action: protocol.ActionCreateLab})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	assert.Equal(t, "kept", (<-q.C()).Message)
	assert.Empty(t, q.C())
	assert.Contains(t, logs.String(), "notification queue full")
}

func TestQueueDefaultSize(t *testing.T) {
	q := NewQueue(0, testutil.NopLogger())
	assert.Equal(t, DefaultQueueSize, cap(q.ch))
}

func TestMultiFansOut(t *testing.T) {
	var got []string
	a := NotifierFunc(func(n Notification) { got = append(got, "a:"+n.Message) })
	b := NotifierFunc(func(n Notification) { got = append(got, "b:"+n.Message) })

	Multi{a, b}.Notify(Notification{Message: "hi"})

	assert.Equal(t, []string{"a:hi", "b:hi"}, got)
}

func TestLogNotifier(t *testing.T) {
	logger, logs := testutil.BufferLogger()

	NewLogNotifier(logger).Notify(Notification{
		Level:   LevelError,
		Action:  protocol.ActionCreateLab,
		Message: "insufficient funds",
		At:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	})

	out := logs.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"msg":"insufficient funds"`)
	assert.Contains(t, out, `"action":"create-lab"`)
}
