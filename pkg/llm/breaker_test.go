package llm

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WithBreaker", func() {
	var (
		calls int
		fail  error
		call  CallFunc
	)

	BeforeEach(func() {
		calls = 0
		fail = nil
		inner := func(_ context.Context, prompt string) (string, error) {
			calls++
			if fail != nil {
				return "", fail
			}
			return "echo: " + prompt, nil
		}
		call = WithBreaker(inner, BreakerConfig{
			Name:             "test",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 2,
		}, nil)
	})

	It("passes results through while closed", func() {
		Expect(call(context.Background(), "hi")).To(Equal("echo: hi"))
		Expect(calls).To(Equal(1))
	})

	It("opens after consecutive failures and stops calling the provider", func() {
		fail = errors.New("boom")
		_, err := call(context.Background(), "a")
		Expect(err).To(MatchError("boom"))
		_, err = call(context.Background(), "b")
		Expect(err).To(MatchError("boom"))

		_, err = call(context.Background(), "c")
		Expect(err).To(MatchError(ErrCircuitOpen))
		Expect(calls).To(Equal(2))
	})

	It("does not count caller cancellation as a failure", func() {
		fail = context.Canceled
		for range 3 {
			_, err := call(context.Background(), "x")
			Expect(err).To(MatchError(context.Canceled))
		}
		Expect(calls).To(Equal(3))
	})
})
