package cmd

import (
	"fmt"
	"os"

	"github.com/argodata/argo/cmd/compare"
	"github.com/argodata/argo/cmd/internal/cmdutil"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FF0000")).
	Bold(true)

var rootCmd = &cobra.Command{
	Use:   "argo",
	Short: "Verifies replicated datasets against their source",
	Long: `Argo compares datasets on a source platform with the warehouse tables they are replicated into, ` +
		`using statistically sized samples instead of full scans.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.InitConfig()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	cmdutil.RegisterConfigFlags(rootCmd)
	cmdutil.RegisterLoggerFlags(rootCmd)
	cmdutil.RegisterMetricsFlags(rootCmd)
	rootCmd.AddCommand(compare.Command())
}
