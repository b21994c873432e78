package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/graphchat/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("creates a console logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("hello", zap.String("key", "value"))

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(false))
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("creates a JSON logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("structured", zap.Int("count", 42))

			var parsed map[string]any
			err := json.Unmarshal(buf.Bytes(), &parsed)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed["msg"]).To(Equal("structured"))
			Expect(parsed["count"]).To(BeNumerically("==", 42))
		})

		It("supports multiple writers", func() {
			var buf1, buf2 bytes.Buffer
			l := logger.New(logger.WithWriters(&buf1, &buf2))
			l.Info("multi")

			Expect(buf1.String()).To(ContainSubstring("multi"))
			Expect(buf2.String()).To(ContainSubstring("multi"))
		})
	})

	Describe("NewLoggerWithWriters", func() {
		It("writes at info level by default", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Info("visible")
			l.Debug("invisible")

			Expect(buf.String()).To(ContainSubstring("visible"))
			Expect(buf.String()).NotTo(ContainSubstring("invisible"))
		})
	})

	Describe("Multi", func() {
		It("dispatches to all loggers", func() {
			var buf1, buf2 bytes.Buffer
			l1 := logger.New(logger.WithWriter(&buf1))
			l2 := logger.New(logger.WithWriter(&buf2))
			multi := logger.Multi(l1, l2)

			multi.Info("broadcast", zap.String("key", "val"))

			Expect(buf1.String()).To(ContainSubstring("broadcast"))
			Expect(buf2.String()).To(ContainSubstring("broadcast"))
		})

		It("keeps fields bound with With", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			child := logger.Multi(l).With(zap.String("component", "test"))
			child.Info("hello")

			var parsed map[string]any
			err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed["component"]).To(Equal("test"))
		})
	})
})
