package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pomboid/kill-fake-news/internal/pipeline"
)

var (
	indexWorkers int
	indexTimeout time.Duration
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <file.jsonl>",
	Short: "Embed and index reference articles into the evidence corpus",
	Long: `Index reads article records from a JSONL file (one JSON object per
line with "title", "url" and "content" fields), embeds each through the
provider pool, adapts vectors to the corpus dimensionality, and writes
the resulting evidence items to the store.

Example:
  kfn index data/reference_news.jsonl
  kfn index data/reference_news.jsonl --workers 4`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().IntVar(&indexWorkers, "workers", 2, "concurrent embedding workers")
	indexCmd.Flags().DurationVar(&indexTimeout, "timeout", 30*time.Minute, "overall indexing timeout")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	articles, err := pipeline.ReadArticles(args[0], os.Stderr)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No articles found to index.")
		return nil
	}

	disp, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	indexer := pipeline.NewIndexer(disp, st, indexWorkers, os.Stderr)
	count, err := indexer.IndexArticles(ctx, articles)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d of %d articles.\n", count, len(articles))
	return nil
}
