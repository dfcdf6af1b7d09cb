package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [task-id]",
	Short: "Cancel a running task",
	Long:  `Posts a cancellation request to a running "run" daemon for the given task id.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCancelTask,
}

var cancelAPIURL string

func init() {
	rootCmd.AddCommand(cancelCmd)
	cancelCmd.Flags().StringVar(&cancelAPIURL, "api-url", "http://localhost:8080", "Base URL of the running daemon")
}

func runCancelTask(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Post(cancelAPIURL+"/api/tasks/"+taskID+"/cancel", "application/json", nil)
	if err != nil {
		return fmt.Errorf("post cancel: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon rejected cancel (status %d): %s", resp.StatusCode, string(respBody))
	}

	fmt.Println(string(respBody))
	return nil
}
