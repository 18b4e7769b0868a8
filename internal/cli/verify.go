package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pomboid/kill-fake-news/internal/dispatch"
	"github.com/pomboid/kill-fake-news/internal/verify"
)

var verifyTimeout time.Duration

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Check a claim against the evidence corpus",
	Long: `Verify embeds the claim, retrieves the most relevant evidence using
hybrid (dense + lexical) search, and asks a generation provider for a
structured verdict: TRUE, FALSE, PARTIALLY_TRUE or INCONCLUSIVE with a
confidence score and cited evidence.

Example:
  kfn verify "The central bank tripled interest rates last week"`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 2*time.Minute, "overall verification timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	result, err := engine.Verify(ctx, args[0])
	if err != nil {
		return describeVerifyError(err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))

	if verbose {
		for _, ps := range engine.ProviderStatus() {
			fmt.Fprintf(os.Stderr, "provider %s: %s (ok=%d fail=%d)\n",
				ps.Name, ps.Status, ps.SuccessCount, ps.FailureCount)
		}
	}

	return nil
}

// describeVerifyError maps stage errors onto operator-friendly messages
func describeVerifyError(err error) error {
	var embErr *verify.EmbeddingUnavailableError
	var synErr *verify.SynthesisUnavailableError
	var valErr *verify.ValidationError
	var exhErr *dispatch.ExhaustedError

	switch {
	case errors.As(err, &embErr):
		return fmt.Errorf("service degraded - no embedding provider responded: %w", err)
	case errors.As(err, &synErr):
		return fmt.Errorf("service degraded - no generation provider responded: %w", err)
	case errors.As(err, &valErr):
		return fmt.Errorf("transient processing failure, retry later: %w", err)
	case errors.As(err, &exhErr):
		return fmt.Errorf("service degraded: %w", err)
	default:
		return err
	}
}
