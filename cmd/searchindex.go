package cmd

import (
	"fmt"
	"log/slog"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/searchindex"
	"github.com/spf13/cobra"
)

const (
	searchIndexDocsKey = "docs"
	searchIndexOutKey  = "out"
)

func newSearchIndexCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "search-index",
		Short:         "Build the documentation search index",
		RunE:          runSearchIndex,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().String(searchIndexDocsKey, "docs", "Directory of Markdown documents to index")
	cmd.Flags().String(searchIndexOutKey, config.DefaultSearchIndexPath, "Path of the generated index")
	return cmd
}

func runSearchIndex(cmd *cobra.Command, _ []string) error {
	docs, err := cmd.Flags().GetString(searchIndexDocsKey)
	if err != nil {
		return err
	}
	out, err := cmd.Flags().GetString(searchIndexOutKey)
	if err != nil {
		return err
	}

	index, err := searchindex.Build(docs)
	if err != nil {
		return fmt.Errorf("failed to build search index: %w", err)
	}
	if err := index.Write(out); err != nil {
		return fmt.Errorf("failed to write search index: %w", err)
	}
	slog.Info("Search index written", "documents", len(index.Documents), "path", out)
	return nil
}
