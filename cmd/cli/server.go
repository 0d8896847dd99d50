package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "archivist-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// pingServer returns the status reported by /health
func pingServer(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/health", nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check returned %d", resp.StatusCode)
	}

	var health struct {
		Status    string `json:"status"`
		ActiveRun string `json:"active_run"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", err
	}
	return health.Status, nil
}

// locateServer prefers the binary installed next to the CLI over PATH
func locateServer() (string, error) {
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), serverBinary)
		if fi, err := os.Stat(sibling); err == nil && !fi.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(serverBinary)
	if err != nil {
		return "", fmt.Errorf("%s not found next to archivist or on PATH", serverBinary)
	}
	return path, nil
}

// spawnServer launches archivist-server in its own session with the CLI's config
func spawnServer() error {
	path, err := locateServer()
	if err != nil {
		return err
	}

	args := []string{"-foreground"}
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	cmd := exec.Command(path, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", serverBinary, err)
	}
	return cmd.Process.Release()
}

// ensureServerRunning spawns the server when /health does not answer and
// polls until it does
func ensureServerRunning() error {
	if _, err := pingServer(context.Background()); err == nil {
		return nil
	}

	fmt.Fprintf(os.Stderr, "No server at %s, starting %s...\n", serverURL, serverBinary)
	if err := spawnServer(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), serverStartTimeout)
	defer cancel()
	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("server did not become healthy within %v", serverStartTimeout)
		case <-ticker.C:
			if _, err := pingServer(ctx); err == nil {
				fmt.Fprintln(os.Stderr, "Server started")
				return nil
			}
		}
	}
}
