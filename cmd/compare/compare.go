package compare

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/argodata/argo/cmd/internal/cmdutil"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile"
	"github.com/argodata/argo/reconcile/batch"
	"github.com/argodata/argo/reconcile/colmap"
	"github.com/argodata/argo/reconcile/inconsistency"
	"github.com/argodata/argo/reconcile/report"
	"github.com/argodata/argo/reconcile/rowcount"
	"github.com/argodata/argo/reconcile/sampling"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// ErrComparisonFailed is returned when the report records an error.
var ErrComparisonFailed = errors.New("comparison failed")

// ErrDiscrepancies is returned with --fail-on-discrepancy when the compared
// data does not match.
var ErrDiscrepancies = errors.New("discrepancies found")

func Command() *cobra.Command {
	var (
		datasetID         string
		tableName         string
		keyColumns        []string
		samplingMethod    string
		orderedFallback   bool
		sampleSize        int
		confidence        float64
		margin            float64
		seed              int64
		batchSize         int
		batchesPerSecond  float64
		fuzzyMatch        bool
		fuzzyThreshold    float64
		transformNames    bool
		emptyEqualsNull   bool
		debugExport       bool
		failOnDiscrepancy bool
		policy            = rowcount.DefaultPolicy()
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a source dataset with its warehouse replica.",
		Long: `Compare checks the schema and row count of a dataset against its warehouse replica, ` +
			`then compares the values of a statistically sized sample of rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)

			table, err := dbtable.ParseName(tableName)
			if err != nil {
				return err
			}
			method, err := sampling.ParseMethod(samplingMethod)
			if err != nil {
				return err
			}
			var matcher colmap.Matcher = colmap.ExactMatch{}
			if fuzzyMatch {
				m := colmap.DefaultFuzzyMatch()
				m.Threshold = fuzzyThreshold
				matcher = m
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := cmdutil.Store(ctx, logger)
			if err != nil {
				return err
			}

			reporter := inconsistency.CombinedReporter{}
			reporter.Reporters = append(reporter.Reporters, &inconsistency.LogReporter{Logger: logger})
			defer reporter.Close()

			session := reconcile.NewSession()
			target := reconcile.Target{DatasetID: datasetID, Table: table, KeyColumns: keyColumns}
			conns, err := cmdutil.LoadDBConns(ctx)
			if err != nil {
				// The report still records what was attempted.
				b := report.NewBuilder(report.Header{
					SessionID:      session.ID.String(),
					DatasetID:      datasetID,
					Table:          table.String(),
					KeyColumns:     keyColumns,
					Timestamp:      session.Started,
					TransformNames: transformNames,
				})
				b.AddError(report.SectionConnection, err)
				return finish(cmd, logger, st, b.Build(), failOnDiscrepancy)
			}
			defer func() {
				if err := conns.Close(context.Background()); err != nil {
					logger.Err(err).Msgf("error closing connections")
				}
			}()
			reporter.Report(inconsistency.StatusReport{
				Info: fmt.Sprintf("connected to %s and %s", conns.Source.ID(), conns.Warehouse.ID()),
			})

			opts := []reconcile.Opt{
				reconcile.WithSession(session),
				reconcile.WithMatcher(matcher),
				reconcile.WithTransformNames(transformNames),
				reconcile.WithColumnFilter(cmdutil.ColumnFilter()),
				reconcile.WithRowCountPolicy(policy),
				reconcile.WithConfidence(confidence, margin),
				reconcile.WithSampleSize(sampleSize),
				reconcile.WithSeed(seed),
				reconcile.WithSamplingMethod(method, orderedFallback),
				reconcile.WithBatchSize(batchSize),
				reconcile.WithBatchesPerSecond(batchesPerSecond),
				reconcile.WithEmptyEqualsNull(emptyEqualsNull),
			}
			if debugExport {
				if st == nil {
					return errors.Newf("--debug-export requires --local-path, --s3-bucket or --gcp-bucket")
				}
				opts = append(opts, reconcile.WithDebugStore(st))
			}

			reporter.Report(inconsistency.StatusReport{Info: "comparison in progress"})
			r, err := reconcile.Reconcile(ctx, conns, logger, reporter, target, opts...)
			if err != nil {
				return errors.Wrapf(err, "error comparing")
			}
			reporter.Report(inconsistency.StatusReport{Info: "comparison complete"})
			return finish(cmd, logger, st, r, failOnDiscrepancy)
		},
	}

	cmd.PersistentFlags().StringVar(
		&datasetID,
		"dataset-id",
		"",
		"id of the source dataset",
	)
	cmd.PersistentFlags().StringVar(
		&tableName,
		"table",
		"",
		"warehouse table the dataset is replicated to, as [database.][schema.]table",
	)
	cmd.PersistentFlags().StringSliceVar(
		&keyColumns,
		"key-columns",
		nil,
		"columns identifying a row, by source name",
	)
	cmd.PersistentFlags().StringVar(
		&samplingMethod,
		"sampling-method",
		string(sampling.MethodRandom),
		"how keys are sampled: random or ordered",
	)
	cmd.PersistentFlags().BoolVar(
		&orderedFallback,
		"ordered-fallback",
		true,
		"whether to fall back to ordered sampling if random sampling fails",
	)
	cmd.PersistentFlags().IntVar(
		&sampleSize,
		"sample-size",
		0,
		"if set, number of keys to sample instead of a size computed from the row count",
	)
	cmd.PersistentFlags().Float64Var(
		&confidence,
		"confidence",
		sampling.DefaultConfidence,
		"confidence level used to size the sample",
	)
	cmd.PersistentFlags().Float64Var(
		&margin,
		"margin",
		sampling.DefaultMargin,
		"margin of error used to size the sample",
	)
	cmd.PersistentFlags().Int64Var(
		&seed,
		"seed",
		sampling.DefaultSeed,
		"seed for random sampling",
	)
	cmd.PersistentFlags().IntVar(
		&batchSize,
		"batch-size",
		batch.DefaultBatchSize,
		"number of keys fetched from each system per query",
	)
	cmd.PersistentFlags().Float64Var(
		&batchesPerSecond,
		"batches-per-second",
		0,
		"if set, maximum number of batches fetched per second",
	)
	cmd.PersistentFlags().BoolVar(
		&fuzzyMatch,
		"fuzzy-match",
		false,
		"whether to pair differently named columns by name similarity",
	)
	cmd.PersistentFlags().Float64Var(
		&fuzzyThreshold,
		"fuzzy-threshold",
		colmap.DefaultFuzzyMatch().Threshold,
		"minimum similarity for a fuzzy column match",
	)
	cmd.PersistentFlags().BoolVar(
		&transformNames,
		"transform-names",
		true,
		"whether column names are normalized before alignment (otherwise only case is folded)",
	)
	cmd.PersistentFlags().BoolVar(
		&emptyEqualsNull,
		"empty-equals-null",
		true,
		"whether blank strings compare equal to NULL",
	)
	cmd.PersistentFlags().BoolVar(
		&debugExport,
		"debug-export",
		false,
		"whether to export the compared rows to the configured store",
	)
	cmd.PersistentFlags().BoolVar(
		&failOnDiscrepancy,
		"fail-on-discrepancy",
		false,
		"whether to exit with an error if the data does not match",
	)
	cmd.PersistentFlags().Int64Var(
		&policy.MaxAbsolute,
		"row-count-max-absolute",
		policy.MaxAbsolute,
		"row count differences up to this many rows are negligible",
	)
	cmd.PersistentFlags().Float64Var(
		&policy.MaxPercent,
		"row-count-max-percent",
		policy.MaxPercent,
		"row count differences up to this percentage are negligible",
	)
	cmd.PersistentFlags().Float64Var(
		&policy.LargeMaxPercent,
		"row-count-large-max-percent",
		policy.LargeMaxPercent,
		"row count differences up to this percentage are negligible for large datasets",
	)
	cmd.PersistentFlags().Int64Var(
		&policy.LargeThreshold,
		"row-count-large-threshold",
		policy.LargeThreshold,
		"row count from which a dataset is considered large",
	)
	for _, required := range []string{"dataset-id", "table", "key-columns"} {
		if err := cmd.MarkPersistentFlagRequired(required); err != nil {
			panic(err)
		}
	}
	for _, hidden := range []string{"row-count-large-max-percent", "row-count-large-threshold"} {
		if err := cmd.PersistentFlags().MarkHidden(hidden); err != nil {
			panic(err)
		}
	}
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterColumnFilterFlags(cmd)
	cmdutil.RegisterStoreFlags(cmd)
	return cmd
}
