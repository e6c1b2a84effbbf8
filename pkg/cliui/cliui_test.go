package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/livewire/pkg/cliui"
)

var _ = Describe("cliui", func() {
	DescribeTable("FormatDuration",
		func(d time.Duration, want string) {
			Expect(cliui.FormatDuration(d)).To(Equal(want))
		},
		Entry("milliseconds", 12*time.Millisecond, "12ms"),
		Entry("zero", time.Duration(0), "0ms"),
		Entry("seconds", 3200*time.Millisecond, "3.2s"),
	)

	It("marks errors", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})

	It("renders unset values as <not set>", func() {
		Expect(cliui.KeyValue("client.server", "")).To(ContainSubstring("<not set>"))
		Expect(cliui.KeyValue("client.server", "http://x")).To(ContainSubstring("http://x"))
	})

	Describe("Step", func() {
		It("returns the step error and prints the message", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")

			err := cliui.Step(&buf, "probing", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("probing"))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})
	})

	Describe("StepTTY", func() {
		It("runs fn without drawing when the writer is not a terminal", func() {
			var buf bytes.Buffer
			ran := false

			Expect(cliui.StepTTY(&buf, "probing", func() error {
				ran = true
				return nil
			})).To(Succeed())

			Expect(ran).To(BeTrue())
			Expect(buf.String()).To(BeEmpty())
		})
	})
})
