package daemon

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/corpus"
	"github.com/cloo-solutions/finsight/internal/storage"
	"github.com/spf13/cobra"
)

func CorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage the article corpus",
	}

	cmd.AddCommand(corpusPushCmd())

	cli.SetEnv(cmd, "FINSIGHT_S3_ENDPOINT", "FINSIGHT_S3_BUCKET", "FINSIGHT_S3_ACCESS_KEY_ID", "FINSIGHT_S3_SECRET_ACCESS_KEY", "FINSIGHT_S3_CORPUS_PREFIX")
	return cmd
}

func corpusPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [dir]",
		Short: "Upload local articles to the S3 corpus prefix",
		Long:  "Uploads every .txt article in dir (FINSIGHT_CORPUS_DIR by default) to FINSIGHT_S3_BUCKET under FINSIGHT_S3_CORPUS_PREFIX.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCorpusPush,
	}
}

func runCorpusPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasS3() {
		return fmt.Errorf("S3 is not configured: set FINSIGHT_S3_BUCKET, FINSIGHT_S3_ACCESS_KEY_ID and FINSIGHT_S3_SECRET_ACCESS_KEY")
	}

	dir := cfg.CorpusDir
	if len(args) == 1 {
		dir = args[0]
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	keys, err := corpus.Push(ctx, corpus.NewDirSource(dir), client, cfg.S3CorpusPrefix)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d articles to s3://%s/%s\n", len(keys), cfg.S3Bucket, cfg.S3CorpusPrefix)
	return nil
}
