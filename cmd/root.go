package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ragboot",
	Short:        "ragboot — index bootstrap and launcher for the legal-RAG web app",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `ragboot prepares the on-disk search index (Chroma vector store, BM25
index and document metadata) on the persistent volume, restoring it from a
bundle archive when it is missing or incomplete, and then hands off to the
application server. It is idempotent and safe to run on every process start.`,
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
