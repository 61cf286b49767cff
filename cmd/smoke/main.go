package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/yapmint/yapmint/internal/smoketest"
)

// Default configuration constants.
const (
	defaultReplays     = 3
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		handle  = flag.String("handle", "alice", "Handle to issue rewards for")
		replays = flag.Int("replays", defaultReplays, "Number of duplicate submissions to replay")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile = flag.String("log", "", "Log file for test output (default: smoke_log_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoketest.ShowHelp()
		return
	}

	// Setup logging
	if err := smoketest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &smoketest.Config{
		BaseURL: *baseURL,
		Handle:  *handle,
		Replays: *replays,
		Timeout: *timeout,
		LogFile: *logFile,
		Verbose: *verbose,
	}

	// Run the test
	if err := smoketest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		return
	}
}
