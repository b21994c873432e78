package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/eventstream"
	"github.com/papercomputeco/graphchat/pkg/eventstream/nop"
	"github.com/papercomputeco/graphchat/pkg/history"
)

var _ = Describe("Publisher", func() {
	var p *nop.Publisher

	BeforeEach(func() {
		p = nop.NewPublisher()
	})

	It("rejects nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		Expect(p.Dropped()).To(BeZero())
	})

	It("rejects events without a session", func() {
		err := p.PublishTurn(context.Background(), &eventstream.TurnPersistedEvent{})
		Expect(err).To(MatchError(eventstream.ErrUnkeyedTurnEvent))
	})

	It("counts dropped events", func() {
		event := &eventstream.TurnPersistedEvent{Turn: history.Turn{ID: "t1", SessionID: "s1"}}
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(p.Dropped()).To(Equal(int64(2)))
	})

	It("closes successfully", func() {
		Expect(p.Close()).To(Succeed())
	})
})
