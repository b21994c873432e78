package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/eventstream"
	"github.com/papercomputeco/graphchat/pkg/history"
)

var _ = Describe("Event", func() {
	var turn *history.Turn

	BeforeEach(func() {
		turn = &history.Turn{
			ID:                "5b0c7a0e-0000-4000-8000-000000000001",
			SessionID:         "session-1",
			Source:            history.SourceCypher,
			Input:             "Who directed it?",
			RephrasedQuestion: "Who directed The Matrix?",
			Output:            "Lana and Lilly Wachowski.",
			Query:             "MATCH (p:Person)-[:DIRECTED]->(m:Movie {title: 'The Matrix'}) RETURN p.name",
			SourceIDs:         []string{"4:db:1"},
		}
	})

	It("builds a TurnPersistedEvent from a persisted turn", func() {
		enqueued := time.Unix(1735689600, 0)
		persisted := enqueued.Add(1500 * time.Millisecond)

		event := eventstream.NewTurnPersistedEvent(turn, enqueued, persisted)
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeTurnPersisted))
		Expect(event.EventID).To(HavePrefix("evt_"))
		Expect(event.Source.Service).To(Equal("graphchat"))
		Expect(event.Source.Pipeline).To(Equal(history.SourceCypher))
		Expect(event.Timing.QueuedMs).To(Equal(int64(1500)))
		Expect(event.Turn.ID).To(Equal(turn.ID))
	})

	It("copies the turn", func() {
		event := eventstream.NewTurnPersistedEvent(turn, time.Now(), time.Now())
		turn.Output = "changed"
		Expect(event.Turn.Output).To(Equal("Lana and Lilly Wachowski."))
	})

	It("marshals with expected top-level keys", func() {
		event := eventstream.NewTurnPersistedEvent(turn, time.Now(), time.Now())

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("timing"))
		Expect(got).To(HaveKey("turn"))

		turnJSON := got["turn"].(map[string]any)
		Expect(turnJSON).To(HaveKeyWithValue("session_id", "session-1"))
		Expect(turnJSON).To(HaveKeyWithValue("source_ids", ConsistOf("4:db:1")))
	})

	It("validates events before publishing", func() {
		Expect(eventstream.Validate(nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		Expect(eventstream.Validate(&eventstream.TurnPersistedEvent{})).To(MatchError(eventstream.ErrUnkeyedTurnEvent))
		Expect(eventstream.Validate(eventstream.NewTurnPersistedEvent(turn, time.Now(), time.Now()))).To(Succeed())
	})
})
