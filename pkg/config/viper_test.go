package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/aisearch/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(config.FromViper(v)).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		data := `[backend]
url = "http://localhost:3001"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("backend.url")).To(Equal("http://localhost:3001"))
		Expect(v.GetString("backend.workspace")).To(Equal(config.NewDefaultConfig().Backend.Workspace))
	})

	It("env vars with the AISEARCH_ prefix take precedence over config file values", func() {
		data := `[backend]
workspace = "from-file"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("AISEARCH_BACKEND_WORKSPACE", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(config.FromViper(v).Backend.Workspace).To(Equal("from-env"))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		GinkgoT().Setenv("AISEARCH_BACKEND_WORKSPACE", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var workspace string
		config.AddStringFlag(cmd, config.Flags, config.FlagWorkspace, &workspace)

		Expect(cmd.Flags().Set("workspace", "from-flag")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagWorkspace})

		Expect(v.GetString("backend.workspace")).To(Equal("from-flag"))
	})

	It("falls through to config when flag not set", func() {
		data := `[mock]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagMockListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagMockListen})

		Expect(v.GetString("mock.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{"nonexistent"})

		Expect(v.GetString("backend.mode")).To(Equal("query"))
	})

	It("AddStringFlag pulls name, shorthand, and description from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var url string
		config.AddStringFlag(cmd, config.Flags, config.FlagBackendURL, &url)

		f := cmd.Flags().Lookup("backend-url")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("b"))
		Expect(f.Usage).To(Equal("RAG backend base URL"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Backend.URL))
	})

	It("AddUintFlag works for max-line-size", func() {
		cmd := &cobra.Command{Use: "test"}
		var size uint
		config.AddUintFlag(cmd, config.Flags, config.FlagMaxLineSize, &size)

		f := cmd.Flags().Lookup("max-line-size")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("4194304"))
	})

	It("registers every flag against a known config key", func() {
		for key, f := range config.Flags {
			Expect(config.IsValidConfigKey(f.ViperKey)).To(BeTrue(), "flag %s", key)
		}
	})
})
