// Command darkroom runs the photo gallery metadata service.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"darkroom/internal/auth"
	blobs3 "darkroom/internal/blob/s3"
	"darkroom/internal/gallery"
	"darkroom/internal/home"
	"darkroom/internal/server"
	"darkroom/internal/snapshot"
	snapfile "darkroom/internal/snapshot/file"
	snapmem "darkroom/internal/snapshot/memory"
	snaps3 "darkroom/internal/snapshot/s3"
	"darkroom/internal/syncjob"
)

var version = "dev"

// serverOptions collects everything the server subcommand needs, resolved
// from flags and environment.
type serverOptions struct {
	addr         string
	homeFlag     string
	backing      string
	bucket       string
	snapshotKey  string
	publicURL    string
	uploadPrefix string
	s3Endpoint   string
	s3Region     string
	syncInterval time.Duration
	tokenTTL     time.Duration
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	rootCmd := &cobra.Command{
		Use:   "darkroom",
		Short: "Photo gallery metadata service",
	}

	var opts serverOptions
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the darkroom service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			return run(ctx, logger, opts)
		},
	}

	serverCmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address (host:port)")
	serverCmd.Flags().StringVar(&opts.homeFlag, "home", "", "home directory (default: platform config dir)")
	serverCmd.Flags().StringVar(&opts.backing, "backing", "s3", "durable backing store: s3, file, or none")
	serverCmd.Flags().StringVar(&opts.bucket, "bucket", "", "S3 bucket holding image binaries and the snapshot")
	serverCmd.Flags().StringVar(&opts.snapshotKey, "snapshot-key", "darkroom/photos.json", "object key of the snapshot in the bucket")
	serverCmd.Flags().StringVar(&opts.publicURL, "public-url", "", "base URL under which bucket objects are publicly reachable")
	serverCmd.Flags().StringVar(&opts.uploadPrefix, "upload-prefix", "photos", "key prefix signed uploads land under")
	serverCmd.Flags().StringVar(&opts.s3Endpoint, "s3-endpoint", "", "custom S3 endpoint (R2, MinIO); empty for AWS")
	serverCmd.Flags().StringVar(&opts.s3Region, "s3-region", "auto", "S3 region")
	serverCmd.Flags().DurationVar(&opts.syncInterval, "sync-interval", time.Minute, "how often a dirty snapshot is re-pushed to the backing store")
	serverCmd.Flags().DurationVar(&opts.tokenTTL, "token-duration", 168*time.Hour, "admin session token lifetime")

	hashCmd := &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Hash an admin secret for DARKROOM_ADMIN_SECRET_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(serverCmd, hashCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts serverOptions) error {
	secretHash := os.Getenv("DARKROOM_ADMIN_SECRET_HASH")
	if secretHash == "" {
		return fmt.Errorf("DARKROOM_ADMIN_SECRET_HASH is not set (generate one with darkroom hash-secret)")
	}
	jwtSecret := os.Getenv("DARKROOM_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("DARKROOM_JWT_SECRET is not set")
	}
	if opts.bucket == "" {
		return fmt.Errorf("--bucket is required")
	}
	if opts.publicURL == "" {
		return fmt.Errorf("--public-url is required")
	}

	// Resolve home directory.
	hd, err := resolveHome(opts.homeFlag)
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	if err := hd.EnsureExists(); err != nil {
		return err
	}
	logger.Info("home directory", "path", hd.Root())

	s3Client, err := newS3Client(ctx, opts)
	if err != nil {
		return fmt.Errorf("create S3 client: %w", err)
	}

	backing, err := openBacking(s3Client, hd, opts)
	if err != nil {
		return err
	}
	logger.Info("snapshot stores ready", "cache", hd.SnapshotPath(), "backing", opts.backing)

	blobStore := blobs3.NewStore(s3Client, opts.bucket, opts.publicURL)

	store := gallery.NewStore(gallery.Config{
		Cache:   snapfile.NewStore(hd.SnapshotPath()),
		Backing: backing,
		Prober:  blobStore,
		Logger:  logger,
	})
	logger.Info("collection loaded", "photos", store.Count(ctx))

	// Background re-push of the snapshot while the backing store is behind.
	job, err := syncjob.New(store, opts.syncInterval, logger)
	if err != nil {
		return fmt.Errorf("create sync job: %w", err)
	}
	job.Start()
	defer func() {
		if err := job.Stop(); err != nil {
			logger.Error("sync job stop error", "error", err)
		}
	}()

	srv := server.New(server.Config{
		Logger:       logger,
		Tokens:       auth.NewTokenService([]byte(jwtSecret), opts.tokenTTL),
		SecretHash:   secretHash,
		Gallery:      store,
		Blobs:        blobStore,
		UploadPrefix: opts.uploadPrefix,
	})

	if err := srv.Run(ctx, opts.addr); err != nil {
		return err
	}

	// A dirty snapshot gets one last push before exit.
	if store.Dirty() {
		logger.Info("flushing snapshot to backing store before exit")
		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.FlushBacking(flushCtx); err != nil {
			logger.Error("final flush failed", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// resolveHome returns a Dir from the flag value, or the platform default.
func resolveHome(flagValue string) (home.Dir, error) {
	if flagValue != "" {
		return home.New(flagValue), nil
	}
	return home.Default()
}

// newS3Client builds the shared S3 client. Credentials come from the
// standard chain (env, shared config, instance role); AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY are picked up explicitly so non-AWS endpoints work
// without a shared config file.
func newS3Client(ctx context.Context, opts serverOptions) (*awss3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.s3Region),
	}
	if key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); key != "" && secret != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		if opts.s3Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.s3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// openBacking creates the durable backing snapshot store.
func openBacking(client *awss3.Client, hd home.Dir, opts serverOptions) (snapshot.Store, error) {
	switch opts.backing {
	case "s3":
		return snaps3.NewStore(client, opts.bucket, opts.snapshotKey), nil
	case "file":
		return snapfile.NewStore(hd.SnapshotPath() + ".backing"), nil
	case "none":
		return snapmem.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown backing store type: %q", opts.backing)
	}
}
