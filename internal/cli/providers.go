package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and their capabilities",
	Long: `Providers shows every provider the current configuration resolves,
in failover order, with cost tier, embedding dimensionality and health
state. State reflects this process only: counters reset on start.`,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	disp, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRIORITY\tCOST\tSTATUS\tOK\tFAIL")
	for _, ps := range disp.Status() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%d\n",
			ps.Name, ps.Priority, ps.CostTier, ps.Status, ps.SuccessCount, ps.FailureCount)
	}
	return w.Flush()
}
