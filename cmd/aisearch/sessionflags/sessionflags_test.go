package sessionflags_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/aisearch/cmd/aisearch/sessionflags"
)

func newCmd(v *sessionflags.Values, configDir string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config-dir", configDir, "")
	sessionflags.Register(cmd, v)
	return cmd
}

var _ = Describe("Resolve", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns defaults when nothing is set", func() {
		cmd := newCmd(&sessionflags.Values{}, tmpDir)

		cfg, err := sessionflags.Resolve(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Backend.Workspace).To(Equal("ios"))
		Expect(cfg.Backend.Framing).To(Equal("sse"))
	})

	It("applies flag > env > file precedence", func() {
		data := `[backend]
url = "http://file:3001"
workspace = "file"
mode = "chat"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("AISEARCH_BACKEND_WORKSPACE", "env")
		GinkgoT().Setenv("AISEARCH_BACKEND_MODE", "env-mode")

		cmd := newCmd(&sessionflags.Values{}, tmpDir)
		Expect(cmd.Flags().Set("workspace", "flag")).To(Succeed())

		cfg, err := sessionflags.Resolve(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Backend.Workspace).To(Equal("flag"))
		Expect(cfg.Backend.Mode).To(Equal("env-mode"))
		Expect(cfg.Backend.URL).To(Equal("http://file:3001"))
	})

	It("registers --record with an implicit auto value", func() {
		v := &sessionflags.Values{}
		cmd := newCmd(v, tmpDir)
		Expect(cmd.ParseFlags([]string{"--record"})).To(Succeed())
		Expect(v.Record).To(Equal(sessionflags.RecordAuto))
	})
})

var _ = Describe("OpenRecording", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("is off for an empty value", func() {
		w, path, err := sessionflags.OpenRecording("", tmpDir, time.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(BeNil())
		Expect(path).To(BeEmpty())
	})

	It("creates a file under recordings/ for auto", func() {
		w, path, err := sessionflags.OpenRecording(sessionflags.RecordAuto, tmpDir, time.Now())
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()
		Expect(path).To(HavePrefix(filepath.Join(tmpDir, "recordings")))
	})

	It("creates the named file otherwise", func() {
		target := filepath.Join(tmpDir, "out.sse")
		w, path, err := sessionflags.OpenRecording(target, tmpDir, time.Now())
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()
		Expect(path).To(Equal(target))
		_, err = os.Stat(target)
		Expect(err).NotTo(HaveOccurred())
	})
})
