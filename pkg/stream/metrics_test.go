package stream

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ = Describe("Metrics", func() {
	var (
		reg     *prometheus.Registry
		metrics *Metrics
		server  *httptest.Server
	)

	BeforeEach(func() {
		reg = prometheus.NewRegistry()

		var err error
		metrics, err = NewMetrics(reg)
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("data: {\"content\":\"a\"}\ndata: oops\ndata: {\"content\":\"b\"}\ndata: [DONE]\n"))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("counts sessions and frames", func() {
		client := NewClient(WithMetrics(metrics))

		_, err := client.Collect(context.Background(), Request{URL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		Expect(testutil.ToFloat64(metrics.sessions.WithLabelValues("sequence", "completed"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.frames.WithLabelValues("content"))).To(Equal(2.0))
		Expect(testutil.ToFloat64(metrics.frames.WithLabelValues("malformed"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(metrics.frames.WithLabelValues("terminal"))).To(Equal(1.0))
		Expect(testutil.CollectAndCount(metrics.duration)).To(Equal(1))
	})

	It("rejects a second registration on the same registry", func() {
		_, err := NewMetrics(reg)
		Expect(err).To(HaveOccurred())
	})

	It("records nothing through a nil receiver", func() {
		var m *Metrics
		Expect(func() {
			m.observeSession(ModeProbe, StatusCompleted, 0)
			m.observeFrame(0)
		}).NotTo(Panic())
	})
})
