package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/apresai/podcastos/internal/model"
)

var Version = "dev"

var flagServerURL string

var rootCmd = &cobra.Command{
	Use:   "podcasterctl",
	Short: "Operate a podcastos daemon: start, watch, approve, and cancel episode generation jobs",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("podcasterctl %s\n", Version)
	},
}

var (
	flagProfileID          string
	flagTopicCount         int
	flagDurationMinutes    int
	flagDeepResearch       bool
	flagEditorialReview    bool
	flagNoAudio            bool
	flagGenerateNewsletter bool
	flagWatchAfterStart    bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new episode generation job for a profile",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Print a job's current status snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Poll a job until it reaches a terminal or waiting-for-review state, rendering a progress bar",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running or waiting-for-review job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

var (
	flagScriptFile string
)

var approveCmd = &cobra.Command{
	Use:   "approve <job-id>",
	Short: "Approve a job paused for editorial review and resume it at audio rendering",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", envOr("PODCASTOS_SERVER_URL", "http://localhost:8080"), "Base URL of the podcastos HTTP API")

	startCmd.Flags().StringVar(&flagProfileID, "profile", "", "Profile to generate an episode for (required)")
	startCmd.Flags().IntVar(&flagTopicCount, "topic-count", 0, "Max topics to research (0 = profile's configured count)")
	startCmd.Flags().IntVar(&flagDurationMinutes, "duration-minutes", 0, "Target episode length in minutes (0 = profile's configured duration)")
	startCmd.Flags().BoolVar(&flagDeepResearch, "deep-research", false, "Use deep research depth for all topics")
	startCmd.Flags().BoolVar(&flagEditorialReview, "editorial-review", false, "Pause after scripting for human approval before audio rendering")
	startCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "Stop after the script is persisted, skipping audio rendering")
	startCmd.Flags().BoolVar(&flagGenerateNewsletter, "newsletter", false, "Also produce a markdown newsletter companion document")
	startCmd.Flags().BoolVar(&flagWatchAfterStart, "watch", false, "Watch the job's progress after starting it")
	startCmd.MarkFlagRequired("profile")

	approveCmd.Flags().StringVar(&flagScriptFile, "script-file", "", "Path to a replacement script JSON file (omit to keep the draft as-is)")

	rootCmd.AddCommand(versionCmd, startCmd, statusCmd, watchCmd, cancelCmd, approveCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runStart(cmd *cobra.Command, args []string) error {
	client := newAPIClient(flagServerURL)
	opts := model.JobOptions{
		TopicCount:         flagTopicCount,
		DurationMinutes:    flagDurationMinutes,
		DeepResearch:       flagDeepResearch,
		EditorialReview:    flagEditorialReview,
		GenerateAudio:      !flagNoAudio,
		GenerateNewsletter: flagGenerateNewsletter,
		IsRecoverable:      true,
	}

	jobID, err := client.startJob(flagProfileID, opts)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	fmt.Printf("started job %s\n", jobID)

	if flagWatchAfterStart {
		return watchJob(client, jobID)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := newAPIClient(flagServerURL)
	snapshot, err := client.getStatus(args[0])
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

func runWatch(cmd *cobra.Command, args []string) error {
	return watchJob(newAPIClient(flagServerURL), args[0])
}

func runCancel(cmd *cobra.Command, args []string) error {
	client := newAPIClient(flagServerURL)
	if err := client.cancelJob(args[0]); err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	fmt.Printf("cancelled job %s\n", args[0])
	return nil
}

func runApprove(cmd *cobra.Command, args []string) error {
	client := newAPIClient(flagServerURL)

	var editedScript *model.PodcastScript
	if flagScriptFile != "" {
		data, err := os.ReadFile(flagScriptFile)
		if err != nil {
			return fmt.Errorf("read script file: %w", err)
		}
		var script model.PodcastScript
		if err := json.Unmarshal(data, &script); err != nil {
			return fmt.Errorf("parse script file: %w", err)
		}
		editedScript = &script
	}

	if err := client.approveJob(args[0], editedScript); err != nil {
		return fmt.Errorf("approve job: %w", err)
	}
	fmt.Printf("approved job %s\n", args[0])
	return nil
}
