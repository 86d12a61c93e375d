package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-tracker",
	Short: "Track faces across video frames with persistent IDs",
	Long: `Face Tracker assigns a stable ID to every face seen in a video stream.
Detections come from a face detection service or from a recorded replay file;
faces are matched frame to frame by their nearest centroid, and a face that
stays out of view for too long is forgotten.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
