package authcmder_test

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/livewire/cmd/livewire/auth"
	"github.com/papercomputeco/livewire/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	newCmd := func(stdin string, args ...string) (*cobra.Command, *bytes.Buffer) {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .livewire/ config directory")

		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd, out
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("has --list and --remove flags", func() {
		cmd := authcmder.NewAuthCmd()
		Expect(cmd.Use).To(Equal("auth [server]"))
		Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
	})

	It("stores a piped token for the given server", func() {
		cmd, out := newCmd("tok-123\n", "https://chat.example.com")
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("chat.example.com"))

		tok, err := mgr.GetToken("chat.example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(Equal("tok-123"))
	})

	It("defaults to the configured server", func() {
		cmd, _ := newCmd("tok-local\n")
		Expect(cmd.Execute()).To(Succeed())

		tok, err := mgr.GetToken("http://localhost:3000")
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(Equal("tok-local"))
	})

	It("rejects an empty token", func() {
		cmd, _ := newCmd("   \n", "localhost:3000")
		Expect(cmd.Execute()).To(MatchError("token cannot be empty"))
	})

	It("rejects missing input", func() {
		cmd, _ := newCmd("", "localhost:3000")
		Expect(cmd.Execute()).To(MatchError("no input received on stdin"))
	})

	It("lists stored hosts", func() {
		Expect(mgr.SetToken("b.example", "x")).To(Succeed())
		Expect(mgr.SetToken("a.example", "y")).To(Succeed())

		cmd, out := newCmd("", "--list")
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(MatchRegexp(`(?s)a\.example.*b\.example`))
	})

	It("shows no tokens when none are stored", func() {
		cmd, out := newCmd("", "--list")
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No stored tokens"))
	})

	It("removes a stored token", func() {
		Expect(mgr.SetToken("chat.example.com", "x")).To(Succeed())

		cmd, _ := newCmd("", "--remove", "https://chat.example.com")
		Expect(cmd.Execute()).To(Succeed())

		tok, err := mgr.GetToken("chat.example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(tok).To(BeEmpty())
	})
})
