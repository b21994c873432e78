package configcmder_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/graphchat/cmd/graphchat/config"
	"github.com/papercomputeco/graphchat/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "graphchat-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .graphchat dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".graphchat"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "llm.provider", "anthropic"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			// Verify the config file was created
			_, err = os.Stat(filepath.Join(tmpDir, ".graphchat", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "invalid_key", "value"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "llm.provider"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("stores the value in config.toml", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "vector_store.provider", "qdrant"})
			Expect(cmd.Execute()).To(Succeed())

			cfger, err := config.NewConfiger("")
			Expect(err).NotTo(HaveOccurred())
			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.VectorStore.Provider).To(Equal("qdrant"))
		})

		It("refuses to store the graph password", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "graph.password", "secret"})
			Expect(cmd.Execute()).NotTo(Succeed())
		})

		It("rejects invalid uint values", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "embedding.dimensions", "not-a-number"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("prints only the stored value", func() {
			Expect(run("set", "llm.provider", "anthropic")).Error().NotTo(HaveOccurred())

			out, err := run("get", "llm.provider")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("anthropic\n"))
		})

		It("prints an empty line for an unset key", func() {
			out, err := run("get", "eventstream.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("\n"))
		})

		It("rejects unknown keys", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"get", "invalid_key"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"get"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("runs without error when no config exists", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("groups keys by section with their environment overrides", func() {
			Expect(run("set", "llm.provider", "anthropic")).Error().NotTo(HaveOccurred())

			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("[graph]"))
			Expect(out).To(ContainSubstring("[llm]"))
			Expect(out).To(MatchRegexp(`llm\.provider\s+= "anthropic"`))
			Expect(out).To(ContainSubstring("GRAPHCHAT_LLM_PROVIDER"))
			Expect(out).To(ContainSubstring("GRAPHCHAT_GRAPH_URI, NEO4J_URI"))
			Expect(strings.Index(out, "[graph]")).To(BeNumerically("<", strings.Index(out, "[llm]")))
		})

		It("rejects any arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list", "extra"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})
})
