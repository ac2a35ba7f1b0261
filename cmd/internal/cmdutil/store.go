package cmdutil

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/argodata/argo/store"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type storeConfig struct {
	localPath string
	s3Bucket  string
	gcpBucket string
	prefix    string
	compress  bool
}

var storeCfg storeConfig

func RegisterStoreFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&storeCfg.localPath,
		"local-path",
		"",
		"directory to write reports and debug exports to",
	)
	cmd.PersistentFlags().StringVar(
		&storeCfg.s3Bucket,
		"s3-bucket",
		"",
		"s3 bucket to write reports and debug exports to",
	)
	cmd.PersistentFlags().StringVar(
		&storeCfg.gcpBucket,
		"gcp-bucket",
		"",
		"gcp bucket to write reports and debug exports to",
	)
	cmd.PersistentFlags().StringVar(
		&storeCfg.prefix,
		"bucket-path",
		"argo",
		"path within the bucket to write to",
	)
	cmd.PersistentFlags().BoolVar(
		&storeCfg.compress,
		"compress",
		false,
		"whether written artifacts are zstd compressed",
	)
}

// Store returns the configured artifact store, or nil if none is configured.
func Store(ctx context.Context, logger zerolog.Logger) (store.Store, error) {
	var s store.Store
	switch {
	case storeCfg.gcpBucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error creating gcp client")
		}
		s = store.NewGCPStore(logger, client, storeCfg.gcpBucket, storeCfg.prefix)
	case storeCfg.s3Bucket != "":
		sess, err := session.NewSession()
		if err != nil {
			return nil, errors.Wrap(err, "error creating aws session")
		}
		s = store.NewS3Store(logger, sess, storeCfg.s3Bucket, storeCfg.prefix)
	case storeCfg.localPath != "":
		local, err := store.NewLocalStore(logger, storeCfg.localPath)
		if err != nil {
			return nil, err
		}
		s = local
	default:
		return nil, nil
	}
	if storeCfg.compress {
		s = store.Compressed(s)
	}
	return s, nil
}
