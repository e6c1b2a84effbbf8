package stream_test

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/livewire/pkg/stream"
)

const greeting = "data: {\"content\":\"Hel\"}\n" +
	"data: {\"content\":\"lo\"}\n" +
	"data: [DONE]\n"

var _ = Describe("Client", func() {
	var (
		client *stream.Client
		server *httptest.Server
	)

	serve := func(h http.Handler) string {
		server = httptest.NewServer(h)
		return server.URL
	}

	BeforeEach(func() {
		client = stream.NewClient()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	Describe("Sequence mode", func() {
		It("collects content fragments in order", func() {
			url := serve(chunked(false, nil,
				"data: {\"content\":\"Hel\"}\n",
				"data: {\"content\":\"lo\"}\n",
				"data: [DONE]\n",
			))

			fragments, err := client.Collect(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]string{"Hel", "lo"}))
		})

		It("produces the same result when the body arrives byte by byte", func() {
			url := serve(chunked(false, nil, strings.Split(greeting, "")...))

			fragments, err := client.Collect(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]string{"Hel", "lo"}))
		})

		It("ignores blank lines, comments and other fields", func() {
			url := serve(chunked(false, nil,
				": keep-alive\n\nevent: message\nid: 7\n",
				"data: {\"content\":\"ok\"}\n\n",
				"data: [DONE]\n",
			))

			fragments, err := client.Collect(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]string{"ok"}))
		})

		It("skips malformed frames and reports an empty result", func() {
			url := serve(chunked(false, nil, "data: not-json\ndata: [DONE]\n"))

			s := client.Open(context.Background(), stream.Request{URL: url}, stream.ModeSequence)
			res, err := s.Wait()
			Expect(err).To(MatchError(stream.ErrNoFrames))
			Expect(err.Error()).To(Equal("no streaming data received"))
			Expect(res.Status).To(Equal(stream.StatusFailed))
			Expect(res.Fragments).To(BeEmpty())
		})

		It("stops reading at the terminal frame", func() {
			closed := make(chan struct{})
			url := serve(chunked(true, closed,
				"data: {\"content\":\"a\"}\ndata: [DONE]\ndata: {\"content\":\"b\"}\n",
			))

			fragments, err := client.Collect(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]string{"a"}))
			Eventually(closed).Should(BeClosed())
		})

		It("completes when the body ends without the terminal frame", func() {
			url := serve(chunked(false, nil, "data: {\"content\":\"a\"}\n", "data: {\"content\":\"b\"}"))

			fragments, err := client.Collect(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]string{"a", "b"}))
		})

		It("fails a truncated body when the terminal frame is required", func() {
			url := serve(chunked(false, nil, "data: {\"content\":\"a\"}\n"))

			s := client.Open(context.Background(), stream.Request{
				URL:             url,
				RequireTerminal: true,
			}, stream.ModeSequence)

			res, err := s.Wait()
			Expect(err).To(MatchError(stream.ErrTruncated))
			Expect(res.Status).To(Equal(stream.StatusFailed))
			Expect(res.Fragments).To(Equal([]string{"a"}))
		})

		It("reports an empty stream that ends gracefully", func() {
			url := serve(chunked(false, nil))

			_, err := client.Collect(context.Background(), stream.Request{URL: url})
			Expect(err).To(MatchError(stream.ErrNoFrames))
		})

		It("delivers each fragment to OnContent as it arrives", func() {
			url := serve(chunked(false, nil, greeting))

			var (
				mu  sync.Mutex
				got []string
			)
			fragments, err := client.Collect(context.Background(), stream.Request{
				URL: url,
				OnContent: func(content string) {
					mu.Lock()
					defer mu.Unlock()
					got = append(got, content)
				},
			})
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			defer mu.Unlock()
			Expect(got).To(Equal(fragments))
		})

		It("records the raw body verbatim", func() {
			url := serve(chunked(false, nil, strings.SplitAfter(greeting, "\"")...))

			var rec strings.Builder
			_, err := client.Collect(context.Background(), stream.Request{URL: url, Record: &rec})
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.String()).To(Equal(greeting))
		})
	})

	Describe("request construction", func() {
		It("sends the bearer token, body and stream headers", func() {
			received := make(chan *http.Request, 1)
			url := serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				received <- r.Clone(context.Background())
				chunked(false, nil, greeting)(w, r)
			}))

			_, err := client.Collect(context.Background(), stream.Request{
				URL:   url,
				Body:  []byte(`{"message":"hi"}`),
				Token: "secret",
				Header: http.Header{
					"X-Trace": []string{"abc"},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			var r *http.Request
			Eventually(received).Should(Receive(&r))
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer secret"))
			Expect(r.Header.Get("Accept")).To(Equal("text/event-stream"))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(r.Header.Get("X-Trace")).To(Equal("abc"))
		})

		It("leaves transport headers to net/http and decodes gzip bodies", func() {
			encodings := make(chan string, 1)
			url := serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				encodings <- r.Header.Get("Accept-Encoding")

				w.Header().Set("Content-Type", "text/event-stream")
				w.Header().Set("Content-Encoding", "gzip")
				gz := gzip.NewWriter(w)
				_, _ = gz.Write([]byte(greeting))
				_ = gz.Close()
			}))

			fragments, err := client.Collect(context.Background(), stream.Request{
				URL: url,
				Header: http.Header{
					"accept-encoding": []string{"identity"},
					"Connection":      []string{"close"},
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(fragments).To(Equal([]string{"Hel", "lo"}))
			Eventually(encodings).Should(Receive(Equal("gzip")))
		})

		It("uses GET without a body", func() {
			methods := make(chan string, 1)
			url := serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				methods <- r.Method
				chunked(false, nil, greeting)(w, r)
			}))

			_, err := client.Collect(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Eventually(methods).Should(Receive(Equal(http.MethodGet)))
		})
	})

	Describe("failures", func() {
		It("returns a StatusError for non-2xx responses", func() {
			url := serve(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid token"}`))
			}))

			_, err := client.Collect(context.Background(), stream.Request{URL: url})

			var statusErr *stream.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.Code).To(Equal(http.StatusUnauthorized))
			Expect(statusErr.Message).To(Equal("invalid token"))
		})

		It("returns a TransportError when the server is unreachable", func() {
			dead := httptest.NewServer(http.NotFoundHandler())
			url := dead.URL
			dead.Close()

			s := client.Open(context.Background(), stream.Request{URL: url}, stream.ModeSequence)
			res, err := s.Wait()

			var transportErr *stream.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(res.Status).To(Equal(stream.StatusFailed))
			Expect(errors.Is(err, stream.ErrTimeout)).To(BeFalse())
		})

		It("times out with a distinct error when no bytes arrive", func() {
			closed := make(chan struct{})
			url := serve(chunked(true, closed))

			s := client.Open(context.Background(), stream.Request{
				URL:     url,
				Timeout: 50 * time.Millisecond,
			}, stream.ModeSequence)

			res, err := s.Wait()
			Expect(err).To(MatchError(stream.ErrTimeout))
			Expect(res.Status).To(Equal(stream.StatusTimedOut))
			Eventually(closed).Should(BeClosed())
		})

		It("keeps partial content when a deadline interrupts the stream", func() {
			url := serve(chunked(true, nil, "data: {\"content\":\"par\"}\n"))

			s := client.Open(context.Background(), stream.Request{
				URL:     url,
				Timeout: 100 * time.Millisecond,
			}, stream.ModeSequence)

			res, err := s.Wait()
			Expect(err).To(MatchError(stream.ErrTimeout))
			Expect(res.Fragments).To(Equal([]string{"par"}))
		})

		It("maps a parent context deadline to a timeout", func() {
			url := serve(chunked(true, nil))

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			res, err := client.Open(ctx, stream.Request{URL: url}, stream.ModeSequence).Wait()
			Expect(err).To(MatchError(stream.ErrTimeout))
			Expect(res.Status).To(Equal(stream.StatusTimedOut))
		})

		It("maps parent context cancellation to an abort", func() {
			url := serve(chunked(true, nil))

			ctx, cancel := context.WithCancel(context.Background())
			s := client.Open(ctx, stream.Request{URL: url}, stream.ModeSequence)
			Eventually(s.Status).Should(Equal(stream.StatusOpen))
			cancel()

			res, err := s.Wait()
			Expect(err).To(MatchError(stream.ErrAborted))
			Expect(res.Status).To(Equal(stream.StatusAborted))
		})
	})

	Describe("Session", func() {
		It("aborts on Cancel and releases the transport", func() {
			closed := make(chan struct{})
			url := serve(chunked(true, closed, "data: {\"content\":\"a\"}\n"))

			s := client.Open(context.Background(), stream.Request{URL: url}, stream.ModeSequence)
			Eventually(s.Status).Should(Equal(stream.StatusOpen))

			s.Cancel()
			Eventually(s.Done()).Should(BeClosed())

			res, err := s.Wait()
			Expect(err).To(MatchError(stream.ErrAborted))
			Expect(res.Status).To(Equal(stream.StatusAborted))
			Eventually(closed).Should(BeClosed())
		})

		It("ignores Cancel after resolution", func() {
			url := serve(chunked(false, nil, greeting))

			s := client.Open(context.Background(), stream.Request{URL: url}, stream.ModeSequence)
			first, err := s.Wait()
			Expect(err).NotTo(HaveOccurred())

			s.Cancel()
			s.Cancel()

			second, err := s.Wait()
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Status).To(Equal(stream.StatusCompleted))
			Expect(second.Fragments).To(Equal(first.Fragments))
			Expect(s.Status()).To(Equal(stream.StatusCompleted))
		})

		It("does not let a timeout override an earlier resolution", func() {
			url := serve(chunked(false, nil, greeting))

			s := client.Open(context.Background(), stream.Request{
				URL:     url,
				Timeout: 200 * time.Millisecond,
			}, stream.ModeSequence)
			_, err := s.Wait()
			Expect(err).NotTo(HaveOccurred())

			Consistently(s.Status, 300*time.Millisecond).Should(Equal(stream.StatusCompleted))
		})

		It("freezes Elapsed at resolution", func() {
			url := serve(chunked(false, nil, greeting))

			s := client.Open(context.Background(), stream.Request{URL: url}, stream.ModeSequence)
			res, err := s.Wait()
			Expect(err).NotTo(HaveOccurred())

			Consistently(s.Elapsed, 50*time.Millisecond).Should(Equal(res.Elapsed))
		})

		It("gives each session a distinct id", func() {
			url := serve(chunked(false, nil, greeting))

			a := client.Open(context.Background(), stream.Request{URL: url}, stream.ModeSequence)
			b := client.Open(context.Background(), stream.Request{URL: url}, stream.ModeProbe)
			Expect(a.ID()).NotTo(Equal(b.ID()))
			Expect(a.Mode()).To(Equal(stream.ModeSequence))
			Expect(b.Mode()).To(Equal(stream.ModeProbe))

			_, _ = a.Wait()
			_, _ = b.Wait()
		})
	})

	Describe("Probe mode", func() {
		It("resolves on the first decodable event and aborts the transport", func() {
			closed := make(chan struct{})
			url := serve(chunked(true, closed, "data: {\"type\":\"x\"}\n"))

			res, err := client.Probe(context.Background(), stream.Request{
				URL:     url,
				Timeout: 5 * time.Second,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Observed).To(BeTrue())
			Expect(string(res.Event.Payload)).To(Equal(`{"type":"x"}`))
			Expect(res.Elapsed).To(BeNumerically("<", 5*time.Second))
			Eventually(closed).Should(BeClosed())
		})

		It("skips frames that are not JSON objects", func() {
			url := serve(chunked(true, nil,
				"data: not-json\n",
				"data: {\"content\":\"ping\"}\n",
			))

			res, err := client.Probe(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Observed).To(BeTrue())
			Expect(res.Event.Content).To(Equal("ping"))
		})

		It("succeeds without an event when the stream ends gracefully", func() {
			url := serve(chunked(false, nil, ": nothing yet\n"))

			res, err := client.Probe(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Observed).To(BeFalse())
			Expect(res.Event).To(BeNil())
		})

		It("treats the terminal frame as a graceful end", func() {
			url := serve(chunked(false, nil, "data: [DONE]\n"))

			res, err := client.Probe(context.Background(), stream.Request{URL: url})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Observed).To(BeFalse())
		})

		It("times out when the stream stays silent", func() {
			url := serve(chunked(true, nil))

			_, err := client.Probe(context.Background(), stream.Request{
				URL:     url,
				Timeout: 50 * time.Millisecond,
			})
			Expect(err).To(MatchError(stream.ErrTimeout))
		})
	})
})
