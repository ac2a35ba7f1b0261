package cmdutil

import (
	"github.com/argodata/argo/reconcile/colmap"
	"github.com/spf13/cobra"
)

var columnFilter = colmap.DefaultFilterConfig()

func RegisterColumnFilterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&columnFilter.Include,
		"column-filter",
		columnFilter.Include,
		"POSIX regexp filter for normalized columns whose values are compared",
	)
	cmd.PersistentFlags().StringVar(
		&columnFilter.Exclude,
		"column-exclude",
		columnFilter.Exclude,
		"POSIX regexp filter for normalized columns whose values are not compared",
	)
}

func ColumnFilter() colmap.FilterConfig {
	return columnFilter
}
