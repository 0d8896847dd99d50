package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// apiCall performs a request against the server and decodes a JSON response into out
func apiCall(method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != wantStatus {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// runView is the subset of the run JSON the CLI prints
type runView struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Summary  string `json:"summary"`
	Error    string `json:"error"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
	Progress struct {
		Processed    int     `json:"processed"`
		Errors       int     `json:"errors"`
		Sequence     int     `json:"sequence"`
		Total        int     `json:"total"`
		UsagePercent float64 `json:"usage_percent"`
		LastMessage  string  `json:"last_message"`
	} `json:"progress"`
	StartedAt string `json:"started_at"`
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Start and inspect runs on an archivist server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ensureServer()
	},
}

var runsStartCmd = &cobra.Command{
	Use:       "start [download|validate]",
	Short:     "Start a run on the server",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"download", "validate"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var run runView
		if err := apiCall(http.MethodPost, "/api/v1/runs", map[string]string{"kind": args[0]}, http.StatusCreated, &run); err != nil {
			return err
		}
		fmt.Printf("Run started\n")
		fmt.Printf("ID:     %s\n", run.ID)
		fmt.Printf("Kind:   %s\n", run.Kind)
		fmt.Printf("Status: %s\n", run.Status)
		return nil
	},
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/runs"
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			path += "?status=" + status
		}

		var runs []runView
		if err := apiCall(http.MethodGet, path, nil, http.StatusOK, &runs); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tSTATUS\tPROCESSED\tERRORS\tDURATION")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				truncate(r.ID, 8), r.Kind, r.Status, r.Progress.Processed, r.Progress.Errors, r.Duration)
		}
		return w.Flush()
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show run details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var run runView
		if err := apiCall(http.MethodGet, "/api/v1/runs/"+args[0], nil, http.StatusOK, &run); err != nil {
			return err
		}

		fmt.Printf("Run Details:\n")
		fmt.Printf("  ID:        %s\n", run.ID)
		fmt.Printf("  Kind:      %s\n", run.Kind)
		fmt.Printf("  Status:    %s\n", run.Status)
		fmt.Printf("  Started:   %s\n", run.StartedAt)
		fmt.Printf("  Duration:  %s\n", run.Duration)
		fmt.Printf("  Processed: %d (%d errors)\n", run.Progress.Processed, run.Progress.Errors)
		fmt.Printf("  API usage: %.2f%%\n", run.Progress.UsagePercent)
		if run.Progress.LastMessage != "" {
			fmt.Printf("  Last:      %s\n", run.Progress.LastMessage)
		}
		if run.Summary != "" {
			fmt.Printf("  Summary:   %s\n", run.Summary)
		}
		if run.Error != "" {
			fmt.Printf("  Error:     %s\n", run.Error)
		}
		return nil
	},
}

var runsCancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Stop a running run after its in-flight items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiCall(http.MethodPost, "/api/v1/runs/"+args[0]+"/cancel", nil, http.StatusAccepted, nil); err != nil {
			return err
		}
		fmt.Println("Cancellation requested")
		return nil
	},
}

var runsLogsCmd = &cobra.Command{
	Use:   "logs [id]",
	Short: "Show the item log of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		var result struct {
			Entries []struct {
				Timestamp string                 `json:"timestamp"`
				Message   string                 `json:"message"`
				Fields    map[string]interface{} `json:"fields"`
			} `json:"entries"`
		}
		path := fmt.Sprintf("/api/v1/runs/%s/logs?limit=%d", args[0], limit)
		if err := apiCall(http.MethodGet, path, nil, http.StatusOK, &result); err != nil {
			return err
		}

		jsonOutput, _ := cmd.Flags().GetBool("json")
		if jsonOutput {
			pretty, _ := json.MarshalIndent(result.Entries, "", "  ")
			fmt.Println(string(pretty))
			return nil
		}
		for _, e := range result.Entries {
			fmt.Printf("%s %s\n", e.Timestamp, e.Message)
		}
		return nil
	},
}

func init() {
	runsListCmd.Flags().StringP("status", "s", "", "Filter by status (running, succeeded, failed, cancelled)")
	runsLogsCmd.Flags().IntP("limit", "n", 100, "Maximum number of entries")
	runsLogsCmd.Flags().BoolP("json", "j", false, "Output in JSON format")

	runsCmd.AddCommand(runsStartCmd, runsListCmd, runsGetCmd, runsCancelCmd, runsLogsCmd)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
