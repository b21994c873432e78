package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/graphchat/pkg/cypher"
	"github.com/papercomputeco/graphchat/pkg/history"
	"github.com/papercomputeco/graphchat/pkg/metrics"
	"github.com/papercomputeco/graphchat/pkg/worker"
)

var (
	_ cypher.Observer = (*metrics.Collector)(nil)
	_ worker.Observer = (*metrics.Collector)(nil)
)

var _ = Describe("Collector", func() {
	var c *metrics.Collector

	BeforeEach(func() {
		c = metrics.NewCollector("")
	})

	It("creates independent collectors", func() {
		other := metrics.NewCollector("")
		c.PipelineSelected(history.SourceVector)
		Expect(testutil.ToFloat64(other.PipelineSelections.WithLabelValues("vector"))).To(BeZero())
	})

	It("counts executions that found no result", func() {
		c.ExecutionFinished(1, true)
		c.ExecutionFinished(5, false)
		Expect(testutil.ToFloat64(c.ExecutionNoResult)).To(Equal(1.0))
		Expect(testutil.CollectAndCount(c.ExecutionAttempts)).To(Equal(1))
	})

	It("labels synthesis rounds by final state", func() {
		c.SynthesisFinished(2, cypher.Corrected.String())
		c.SynthesisFinished(5, cypher.Exhausted.String())
		Expect(testutil.CollectAndCount(c.SynthesisRounds)).To(Equal(2))
	})

	It("counts persistence outcomes by source", func() {
		c.TurnPersisted(history.SourceCypher)
		c.HistoryAppendFailed(history.SourceVector)
		c.HistoryAppendFailed(history.SourceVector)
		Expect(testutil.ToFloat64(c.TurnsPersisted.WithLabelValues("cypher"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(c.HistoryAppendFailure.WithLabelValues("vector"))).To(Equal(2.0))
	})

	It("records pipeline status", func() {
		c.PipelineFinished(history.SourceVector, time.Second, nil)
		c.PipelineFinished(history.SourceVector, time.Second, errors.New("x"))
		Expect(testutil.CollectAndCount(c.PipelineDuration)).To(Equal(2))
	})

	It("serves the exposition format", func() {
		c.RecordHTTPRequest("GET", "/ping", 200, 10*time.Millisecond)

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(`graphchat_http_requests_total{method="GET",route="/ping",status="200"} 1`))
		Expect(string(body)).To(ContainSubstring("go_goroutines"))
	})
})
