package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/livewire/pkg/logger"
)

// decode parses a single JSON log line.
func decode(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	ExpectWithOffset(1, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text records by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("stream opened", "url", "http://localhost:8090/api/chat/stream")

			Expect(buf.String()).To(ContainSubstring("level=INFO"))
			Expect(buf.String()).To(ContainSubstring("msg=\"stream opened\""))
			Expect(buf.String()).To(ContainSubstring("url=http://localhost:8090/api/chat/stream"))
		})

		It("filters debug records unless debug is on", func() {
			var quiet, verbose bytes.Buffer
			logger.New(logger.WithWriter(&quiet)).Debug("skipping malformed frame")
			logger.New(logger.WithWriter(&verbose), logger.WithDebug(true)).Debug("skipping malformed frame")

			Expect(quiet.String()).To(BeEmpty())
			Expect(verbose.String()).To(ContainSubstring("skipping malformed frame"))
		})

		It("writes JSON records with bound session attributes", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true)).
				With("session_id", "abc", "mode", "probe")
			l.Info("stream session resolved", "fragments", 3)

			parsed := decode(&buf)
			Expect(parsed["msg"]).To(Equal("stream session resolved"))
			Expect(parsed["session_id"]).To(Equal("abc"))
			Expect(parsed["mode"]).To(Equal("probe"))
			Expect(parsed["fragments"]).To(BeNumerically("==", 3))
		})

		It("nests grouped attributes", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true)).WithGroup("request")
			l.Info("opening stream", "method", "POST")

			group, ok := decode(&buf)["request"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(group["method"]).To(Equal("POST"))
		})

		It("renders pretty output through charmbracelet/log", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Warn("probe failed", "name", "probe-0")

			Expect(buf.String()).To(ContainSubstring("probe failed"))
			Expect(buf.String()).To(ContainSubstring("probe-0"))
		})

		It("prefers pretty over JSON when both are set", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithJSON(true))
			l.Info("replay listening")

			Expect(json.Valid(bytes.TrimSpace(buf.Bytes()))).To(BeFalse())
			Expect(buf.String()).To(ContainSubstring("replay listening"))
		})

		It("copies records to every writer", func() {
			var a, b bytes.Buffer
			logger.New(logger.WithWriters(&a, &b)).Info("frame")

			Expect(a.String()).To(ContainSubstring("frame"))
			Expect(b.String()).To(Equal(a.String()))
		})

		It("adds the source location when asked", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithSource(true))
			l.Info("located")

			Expect(decode(&buf)).To(HaveKey(slog.SourceKey))
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level", func() {
			h := logger.Nop().Handler()
			for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
				Expect(h.Enabled(context.Background(), level)).To(BeFalse())
			}
		})

		It("survives derived loggers", func() {
			Expect(func() {
				logger.Nop().With("k", "v").WithGroup("g").Error("ignored")
			}).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("sends each record to every logger in its own format", func() {
			var text, js bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&text)),
				logger.New(logger.WithWriter(&js), logger.WithJSON(true)),
			)
			multi.Info("replay listening", "addr", ":8090")

			Expect(text.String()).To(ContainSubstring("addr=:8090"))
			Expect(decode(&js)["addr"]).To(Equal(":8090"))
		})

		It("respects each logger's level", func() {
			var console, file bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&console)),
				logger.New(logger.WithWriter(&file), logger.WithDebug(true)),
			)

			Expect(multi.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())
			multi.Debug("loading transcript")

			Expect(console.String()).To(BeEmpty())
			Expect(file.String()).To(ContainSubstring("loading transcript"))
		})

		It("carries With and WithGroup to every logger", func() {
			var a, b bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&a), logger.WithJSON(true)),
				logger.New(logger.WithWriter(&b), logger.WithJSON(true)),
			)
			multi.With("component", "replay").WithGroup("conn").Info("accepted", "remote", "127.0.0.1")

			for _, buf := range []*bytes.Buffer{&a, &b} {
				parsed := decode(buf)
				Expect(parsed["component"]).To(Equal("replay"))
				Expect(parsed["conn"]).To(HaveKeyWithValue("remote", "127.0.0.1"))
			}
		})

		It("skips nil loggers", func() {
			var buf bytes.Buffer
			multi := logger.Multi(nil, logger.New(logger.WithWriter(&buf)), nil)
			multi.Info("still logged")

			Expect(buf.String()).To(ContainSubstring("still logged"))
		})

		It("keeps writing after one handler fails", func() {
			var buf bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(failingWriter{})),
				logger.New(logger.WithWriter(&buf)),
			)

			err := multi.Handler().Handle(context.Background(), slog.NewRecord(
				time.Now(), slog.LevelInfo, "after failure", 0,
			))
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(buf.String()).To(ContainSubstring("after failure"))
		})

		It("is disabled when every logger is", func() {
			multi := logger.Multi(logger.Nop(), logger.Nop())
			Expect(multi.Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		})
	})
})
