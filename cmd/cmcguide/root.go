package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/cmcguide/internal/app"
	"github.com/dgallion1/cmcguide/internal/config"
)

type cli struct {
	jsonOut bool
	noColor bool
	verbose bool

	knowledgePath string
	corpusPath    string
	indexPath     string
	backend       string

	app *app.App
	out io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "cmcguide",
		Short: "CMC regulatory guidance lookup and reference retrieval",
		Long: `cmcguide resolves structured CMC guidance for a product, stage and region,
answers free-text questions with citations from the reference corpus, and
rebuilds the retrieval index.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")
	f.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	f.BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level to stderr")
	f.StringVar(&c.knowledgePath, "knowledge", "", "guidance tree file (overrides KNOWLEDGE_PATH)")
	f.StringVar(&c.corpusPath, "corpus", "", "corpus manifest (overrides CORPUS_PATH)")
	f.StringVar(&c.indexPath, "index", "", "index artifact (overrides INDEX_PATH)")
	f.StringVar(&c.backend, "backend", "", "similarity backend: termweight or dense (overrides SIMILARITY_BACKEND)")

	root.AddCommand(c.resolveCmd(), c.askCmd(), c.rebuildCmd(), c.indexCmd())
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.noColor {
		color.NoColor = true
	}
	c.out = cmd.OutOrStdout()

	cfg := config.Load()
	if c.knowledgePath != "" {
		cfg.KnowledgePath = c.knowledgePath
	}
	if c.corpusPath != "" {
		cfg.CorpusPath = c.corpusPath
	}
	if c.indexPath != "" {
		cfg.IndexPath = c.indexPath
	}
	if c.backend != "" {
		cfg.SimilarityBackend = strings.ToLower(c.backend)
	}
	cfg.LogFormat = "text"
	cfg.LogLevel = "warn"
	if c.verbose {
		cfg.LogLevel = "debug"
	}

	a, err := app.New(cfg, app.NewLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
