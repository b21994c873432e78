package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/graphchat/pkg/eventstream"
	"github.com/papercomputeco/graphchat/pkg/history"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
	deadline bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w     *fakeWriter
		p     *Publisher
		event *eventstream.TurnPersistedEvent
	)

	BeforeEach(func() {
		w = &fakeWriter{}
		p = newPublisher(w, 0, nil)
		event = eventstream.NewTurnPersistedEvent(&history.Turn{
			ID:        "t1",
			SessionID: "session-1",
			Source:    history.SourceVector,
		}, time.Now(), time.Now())
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("rejects nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		Expect(w.messages).To(BeEmpty())
	})

	It("writes the event keyed by session with a deadline", func() {
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(w.messages).To(HaveLen(1))
		Expect(w.deadline).To(BeTrue())

		msg := w.messages[0]
		Expect(string(msg.Key)).To(Equal("session-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{
			Key: "event_type", Value: []byte(eventstream.EventTypeTurnPersisted),
		}))

		var decoded eventstream.TurnPersistedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Turn.ID).To(Equal("t1"))
	})

	It("wraps write failures", func() {
		w.err = errors.New("leader not available")
		err := p.PublishTurn(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("leader not available")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
