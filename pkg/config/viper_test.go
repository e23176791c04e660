package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		data := `[vector_store]
provider = "chromem"

[retrieval]
top_k = 3
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("vector_store.provider")).To(Equal("chromem"))
		Expect(v.GetInt("retrieval.top_k")).To(Equal(3))
		Expect(v.GetString("api.listen")).To(Equal(":8081"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[llm]
provider = "anthropic"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("DOCRAG_LLM_PROVIDER", "openai")
		GinkgoT().Setenv("DOCRAG_LLM_API_KEY", "sk-test")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LLM.Provider).To(Equal("openai"))
		Expect(cfg.LLM.APIKey).To(Equal("sk-test"))
	})

	It("rejects an invalid resolved config", func() {
		GinkgoT().Setenv("DOCRAG_CHUNKING_OVERLAP", "900")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		_, err = config.FromViper(v)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[api]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("api.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{"nonexistent"})

		Expect(v.GetString("api.listen")).To(Equal(":8081"))
	})

	It("pulls name, shorthand, default and description from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var (
			target   string
			dims     uint
			topK     int
			minScore float32
			brokers  []string
		)
		config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &target)
		config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &dims)
		config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &topK)
		config.AddFloat32Flag(cmd, config.Flags, config.FlagMinScore, &minScore)
		config.AddStringSliceFlag(cmd, config.Flags, config.FlagKafkaBrokers, &brokers)

		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Usage).To(Equal("URL of a running docrag API server"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Client.APITarget))

		Expect(cmd.Flags().Lookup("top-k").Shorthand).To(Equal("k"))
		Expect(topK).To(Equal(5))
		Expect(dims).To(Equal(uint(768)))
		Expect(minScore).To(BeNumerically("~", 0.3, 1e-6))
		Expect(brokers).To(BeEmpty())
	})
})
