package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/graphchat/pkg/history"
)

// NewTestTurn creates a turn with predictable content for index i.
func NewTestTurn(i int) *history.Turn {
	return &history.Turn{
		Source:            history.SourceCypher,
		Input:             fmt.Sprintf("question %d", i),
		RephrasedQuestion: fmt.Sprintf("standalone question %d", i),
		Output:            fmt.Sprintf("answer %d", i),
		Query:             fmt.Sprintf("MATCH (m) RETURN m LIMIT %d", i),
	}
}

// DescribeHistoryDriver registers the behaviour every history.Driver must
// share. newDriver is called before each spec.
func DescribeHistoryDriver(newDriver func() history.Driver) {
	var (
		driver  history.Driver
		ctx     context.Context
		session string
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
		session = uuid.NewString()
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	appendN := func(n int) []string {
		ids := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			id, err := driver.Append(ctx, session, NewTestTurn(i))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())
			ids = append(ids, id)
		}
		return ids
	}

	Describe("Append", func() {
		It("rejects a blank session id", func() {
			_, err := driver.Append(ctx, "", NewTestTurn(1))
			Expect(err).To(MatchError(history.ErrEmptySession))
		})

		It("rejects a nil turn", func() {
			_, err := driver.Append(ctx, session, nil)
			Expect(err).To(MatchError(history.ErrNilTurn))
		})

		It("returns distinct ids", func() {
			ids := appendN(3)
			Expect(ids[0]).NotTo(Equal(ids[1]))
			Expect(ids[1]).NotTo(Equal(ids[2]))
		})

		It("persists every field", func() {
			turn := NewTestTurn(1)
			turn.SourceIDs = []string{"doc-1", "doc-2"}
			id, err := driver.Append(ctx, session, turn)
			Expect(err).NotTo(HaveOccurred())

			turns, err := driver.Read(ctx, session, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))

			got := turns[0]
			Expect(got.ID).To(Equal(id))
			Expect(got.SessionID).To(Equal(session))
			Expect(got.Source).To(Equal(history.SourceCypher))
			Expect(got.Input).To(Equal("question 1"))
			Expect(got.RephrasedQuestion).To(Equal("standalone question 1"))
			Expect(got.Output).To(Equal("answer 1"))
			Expect(got.Query).To(Equal("MATCH (m) RETURN m LIMIT 1"))
			Expect(got.SourceIDs).To(Equal([]string{"doc-1", "doc-2"}))
			Expect(got.CreatedAt.IsZero()).To(BeFalse())
		})

		It("stores an absent query as empty", func() {
			turn := NewTestTurn(1)
			turn.Source = history.SourceVector
			turn.Query = ""
			_, err := driver.Append(ctx, session, turn)
			Expect(err).NotTo(HaveOccurred())

			turns, err := driver.Read(ctx, session, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns[0].Query).To(BeEmpty())
			Expect(turns[0].Source).To(Equal(history.SourceVector))
		})

		It("keeps sessions apart", func() {
			appendN(2)
			other := uuid.NewString()
			_, err := driver.Append(ctx, other, NewTestTurn(9))
			Expect(err).NotTo(HaveOccurred())

			turns, err := driver.Read(ctx, other, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].Input).To(Equal("question 9"))
		})

		It("chains concurrent appends without losing turns", func() {
			const n = 8
			var wg sync.WaitGroup
			for i := 1; i <= n; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := driver.Append(ctx, session, NewTestTurn(i))
					Expect(err).NotTo(HaveOccurred())
				}(i)
			}
			wg.Wait()

			turns, err := driver.Read(ctx, session, n)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(n))

			seen := map[string]bool{}
			for _, t := range turns {
				seen[t.ID] = true
			}
			Expect(seen).To(HaveLen(n))
		})
	})

	Describe("Read", func() {
		It("returns nothing for an unknown session", func() {
			turns, err := driver.Read(ctx, session, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("returns a short chain in full, oldest first", func() {
			ids := appendN(3)

			turns, err := driver.Read(ctx, session, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
			for i, t := range turns {
				Expect(t.ID).To(Equal(ids[i]))
			}
		})

		It("returns the most recent window+1 turns of a long chain", func() {
			ids := appendN(8)

			turns, err := driver.Read(ctx, session, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(6))
			for i, t := range turns {
				Expect(t.ID).To(Equal(ids[2+i]))
			}
			Expect(turns[5].Input).To(Equal("question 8"))
		})

		It("returns exactly window+1 turns when the chain is that long", func() {
			ids := appendN(6)

			turns, err := driver.Read(ctx, session, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(6))
			Expect(turns[0].ID).To(Equal(ids[0]))
		})

		It("honours smaller windows", func() {
			appendN(4)

			turns, err := driver.Read(ctx, session, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[1].Input).To(Equal("question 4"))
		})

		It("uses the default window for non-positive values", func() {
			appendN(7)

			turns, err := driver.Read(ctx, session, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(history.DefaultWindow + 1))
		})
	})

	Describe("Clear", func() {
		It("empties the session", func() {
			appendN(3)
			Expect(driver.Clear(ctx, session)).To(Succeed())

			turns, err := driver.Read(ctx, session, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("starts a fresh chain on the next append", func() {
			appendN(3)
			Expect(driver.Clear(ctx, session)).To(Succeed())

			id, err := driver.Append(ctx, session, NewTestTurn(10))
			Expect(err).NotTo(HaveOccurred())

			turns, err := driver.Read(ctx, session, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].ID).To(Equal(id))
		})

		It("is a no-op for an unknown session", func() {
			Expect(driver.Clear(ctx, session)).To(Succeed())
		})

		It("leaves other sessions alone", func() {
			appendN(2)
			other := uuid.NewString()
			_, err := driver.Append(ctx, other, NewTestTurn(1))
			Expect(err).NotTo(HaveOccurred())

			Expect(driver.Clear(ctx, session)).To(Succeed())

			turns, err := driver.Read(ctx, other, history.DefaultWindow)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(1))
		})
	})
}
