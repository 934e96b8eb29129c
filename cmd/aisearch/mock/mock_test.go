package mockcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	mockcmder "github.com/papercomputeco/aisearch/cmd/aisearch/mock"
)

var _ = Describe("NewMockCmd", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	run := func(args ...string) error {
		root := &cobra.Command{Use: "aisearch", SilenceUsage: true}
		root.PersistentFlags().BoolP("debug", "d", false, "")
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(mockcmder.NewMockCmd())
		root.SetArgs(append([]string{"mock", "--config-dir", tmpDir}, args...))
		root.SetOut(GinkgoWriter)
		root.SetErr(GinkgoWriter)
		return root.Execute()
	}

	It("creates a command with the correct use string", func() {
		Expect(mockcmder.NewMockCmd().Use).To(Equal("mock"))
	})

	It("takes --listen from the flag registry", func() {
		f := mockcmder.NewMockCmd().Flags().Lookup("listen")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("l"))
		Expect(f.DefValue).To(Equal(":3001"))
	})

	It("has replay and scripting flags", func() {
		cmd := mockcmder.NewMockCmd()
		for _, name := range []string{"replay", "watch", "delay", "malformed", "abort", "status", "framing"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("rejects an unknown framing", func() {
		Expect(run("--framing", "ndjson")).To(MatchError(ContainSubstring("unknown framing")))
	})

	It("fails to replay the latest recording when none exist", func() {
		Expect(run("--replay", "latest")).To(MatchError(ContainSubstring("no recordings found")))
	})

	It("fails to replay a missing file", func() {
		Expect(run("--replay", "/nonexistent/stream.sse")).To(MatchError(ContainSubstring("opening replay file")))
	})

	It("requires --replay for --watch", func() {
		Expect(run("--watch")).To(MatchError("--watch requires --replay"))
	})
})
