package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "kara-dl-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// serverVersion returns the version reported by /health, or false when
// nothing at serverURL answers with a health document
func serverVersion() (string, bool) {
	probe := &http.Client{Timeout: time.Second}
	resp, err := probe.Get(serverURL + "/health")
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var health struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", false
	}
	return health.Version, true
}

// findServerBinary looks next to the CLI, then on PATH, then in the usual install dirs
func findServerBinary() (string, error) {
	var candidates []string
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), serverBinary))
	}
	if path, err := exec.LookPath(serverBinary); err == nil {
		candidates = append(candidates, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "go", "bin", serverBinary),
			filepath.Join(home, ".local", "bin", serverBinary))
	}
	candidates = append(candidates, "/usr/local/bin/"+serverBinary, "/usr/bin/"+serverBinary)

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s binary not found", serverBinary)
}

// ensureServerRunning starts a detached server when none answers, then
// waits until it reports healthy
func ensureServerRunning() error {
	if _, ok := serverVersion(); ok {
		return nil
	}

	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	fmt.Println("Server not running, starting...")

	cmd := exec.Command(serverPath)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	// The server outlives the CLI
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release server process: %w", err)
	}

	deadline := time.Now().Add(serverStartTimeout)
	for time.Now().Before(deadline) {
		if version, ok := serverVersion(); ok {
			fmt.Printf("Server %s started\n", version)
			return nil
		}
		time.Sleep(serverPollInterval)
	}
	return fmt.Errorf("server did not start within %v", serverStartTimeout)
}
