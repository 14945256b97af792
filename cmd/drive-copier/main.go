// drive-copier is a standalone operator tool. It polls Drive for images
// shared by the trusted camera account and copies them into the watched
// folder, and it can register the push-notification channel that points
// Drive at the ingestion webhook.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clementchangcheng/projectwildlife/internal/cache"
	"github.com/clementchangcheng/projectwildlife/internal/gcp"
	"github.com/clementchangcheng/projectwildlife/internal/services"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "drive-copier",
	Short: "Copies trusted shared images into the watched Drive folder",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll for shared images and copy new ones until interrupted",
	RunE:  runCopier,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Register a push-notification channel for the watched folder",
	RunE:  registerWatch,
}

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./drive-copier.yaml)")
	rootCmd.PersistentFlags().String("credentials", "", "path to a service account credentials file")

	runCmd.Flags().String("dest-folder", "", "Drive folder id to copy images into")
	runCmd.Flags().String("source-email", "", "only copy files shared by this account")
	runCmd.Flags().String("seen-file", "processed_file_ids.json", "path of the persisted copied-file id list")
	runCmd.Flags().Duration("poll-interval", 60*time.Second, "how often to poll for shared images")

	watchCmd.Flags().String("watch-folder", "", "Drive folder id to watch for changes")
	watchCmd.Flags().String("webhook-address", "", "HTTPS address of the ingestion webhook")
	watchCmd.Flags().Duration("watch-ttl", 24*time.Hour, "lifetime of the notification channel")

	viper.BindPFlag("credentials", rootCmd.PersistentFlags().Lookup("credentials"))
	viper.BindPFlag("dest_folder", runCmd.Flags().Lookup("dest-folder"))
	viper.BindPFlag("source_email", runCmd.Flags().Lookup("source-email"))
	viper.BindPFlag("seen_file", runCmd.Flags().Lookup("seen-file"))
	viper.BindPFlag("poll_interval", runCmd.Flags().Lookup("poll-interval"))
	viper.BindPFlag("watch_folder", watchCmd.Flags().Lookup("watch-folder"))
	viper.BindPFlag("webhook_address", watchCmd.Flags().Lookup("webhook-address"))
	viper.BindPFlag("watch_ttl", watchCmd.Flags().Lookup("watch-ttl"))

	rootCmd.AddCommand(runCmd, watchCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("drive-copier")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("COPIER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Info("Using config file.", "path", viper.ConfigFileUsed())
	}
}

func runCopier(cmd *cobra.Command, args []string) error {
	destFolder := viper.GetString("dest_folder")
	sourceEmail := viper.GetString("source_email")
	if destFolder == "" || sourceEmail == "" {
		return fmt.Errorf("dest-folder and source-email must be set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driveClient, err := gcp.NewDriveClient(ctx, viper.GetString("credentials"))
	if err != nil {
		return fmt.Errorf("failed to create Drive client: %w", err)
	}
	seen, err := cache.LoadSeenFiles(viper.GetString("seen_file"))
	if err != nil {
		return fmt.Errorf("failed to load copied-file id list: %w", err)
	}

	copier := services.NewCopier(driveClient, seen, services.CopierConfig{
		DestinationFolderID: destFolder,
		SourceEmail:         sourceEmail,
		PollInterval:        viper.GetDuration("poll_interval"),
	})
	if err := copier.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func registerWatch(cmd *cobra.Command, args []string) error {
	folderID := viper.GetString("watch_folder")
	address := viper.GetString("webhook_address")
	if folderID == "" || address == "" {
		return fmt.Errorf("watch-folder and webhook-address must be set")
	}

	ctx := cmd.Context()
	driveClient, err := gcp.NewDriveClient(ctx, viper.GetString("credentials"))
	if err != nil {
		return fmt.Errorf("failed to create Drive client: %w", err)
	}

	channelID := uuid.NewString()
	channel, err := driveClient.Watch(ctx, folderID, channelID, address, viper.GetDuration("watch_ttl"))
	if err != nil {
		return err
	}

	slog.Info("Watch channel registered.",
		"channelId", channel.Id,
		"resourceId", channel.ResourceId,
		"expiration", time.UnixMilli(channel.Expiration).UTC().Format(time.RFC3339))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
