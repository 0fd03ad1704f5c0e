package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"dbadminapi/config"
	"dbadminapi/pkg/logger"

	"golang.org/x/time/rate"
)

// AgentAPIResponse represents response from dbfAgentAPI command execution
type AgentAPIResponse struct {
	Status      string `json:"status"`       // success, error, timeout
	ClientID    string `json:"client_id"`    // Agent ID
	Command     string `json:"command"`      // Full command executed
	ExitCode    int    `json:"exit_code"`    // Command exit code
	ExecutedAt  string `json:"executed_at"`  // Execution timestamp
	Output      string `json:"output"`       // Command stdout
	ErrorOutput string `json:"error_output"` // Command stderr
	Message     string `json:"message"`      // Additional message (e.g., error details)
}

// Transport delivers a hex-encoded command to an agent and returns the command's stdout.
// Execute may deliver the command several times; ExecuteOnce delivers it at most once and
// is used for commands that change data.
type Transport interface {
	Execute(ctx context.Context, agentID, hexEncodedJSON string) (string, error)
	ExecuteOnce(ctx context.Context, agentID, hexEncodedJSON string) (string, error)
}

// errCommandFailed marks failures reported by the engine behind the agent. The command was
// delivered and ran, so these are never retried.
var errCommandFailed = errors.New("agent command failed")

// runFunc runs a process and returns its stdout. Replaced in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CLITransport executes dbfsqlexecute on the agent host through the dbfAgentAPI binary,
// retrying transient failures with exponential backoff. A shared token bucket caps the
// rate of commands leaving this process.
type CLITransport struct {
	apiPath        string
	executablePath string
	execTimeout    time.Duration
	maxRetries     int
	delays         []time.Duration
	limiter        *rate.Limiter
	run            runFunc
}

// NewCLITransport builds a transport from config.Cfg.
func NewCLITransport() *CLITransport {
	return NewCLITransportWithConfig(config.Cfg)
}

// NewCLITransportWithConfig builds a transport from an explicit configuration.
func NewCLITransportWithConfig(cfg config.AppConfig) *CLITransport {
	maxRetries := cfg.AgentMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	limit := rate.Inf
	if cfg.AgentRateLimit > 0 {
		limit = rate.Limit(cfg.AgentRateLimit)
	}
	burst := int(cfg.AgentRateLimit)
	if burst < 1 {
		burst = 1
	}
	return &CLITransport{
		apiPath:        cfg.AgentAPIPath,
		executablePath: cfg.AgentExecutablePath,
		execTimeout:    cfg.AgentExecutionTimeout,
		maxRetries:     maxRetries,
		delays:         backoffTable(cfg.AgentRetryBaseDelay),
		limiter:        rate.NewLimiter(limit, burst),
		run:            runCommand,
	}
}

// backoffTable doubles base for each retry. A lookup table keeps the delay bounded
// without shifting by an attempt counter.
func backoffTable(base time.Duration) []time.Duration {
	if base <= 0 {
		base = 2 * time.Second
	}
	return []time.Duration{base, 2 * base, 4 * base, 8 * base, 16 * base}
}

var (
	defaultTransport     *CLITransport
	defaultTransportOnce sync.Once
)

// DefaultTransport returns the process-wide transport so every agent DAO shares one rate limiter.
func DefaultTransport() *CLITransport {
	defaultTransportOnce.Do(func() {
		defaultTransport = NewCLITransport()
	})
	return defaultTransport
}

// Execute runs "<executable> execute <hex json>" on the agent with retries.
func (t *CLITransport) Execute(ctx context.Context, agentID, hexEncodedJSON string) (string, error) {
	command := fmt.Sprintf("%s execute %s", t.executablePath, hexEncodedJSON)
	logger.Debugf("Starting dbfAgentAPI execution - agentID: %s, maxRetries: %d", agentID, t.maxRetries)

	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if attempt > 1 {
			delayIndex := attempt - 2
			if delayIndex >= len(t.delays) {
				delayIndex = len(t.delays) - 1
			}
			delay := t.delays[delayIndex]
			logger.Warnf("dbfAgentAPI attempt %d failed, retrying in %v...", attempt-1, delay)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("dbfAgentAPI retry aborted: %w", ctx.Err())
			case <-timer.C:
			}
		}

		if err := t.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("dbfAgentAPI rate limit wait: %w", err)
		}

		result, err := t.attempt(ctx, agentID, command)
		if err == nil {
			if attempt > 1 {
				logger.Infof("dbfAgentAPI succeeded on attempt %d/%d", attempt, t.maxRetries)
			}
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}
		if !isRetryableAgentError(err) {
			logger.Errorf("Non-retryable error on attempt %d: %v", attempt, err)
			return "", err
		}
		logger.Warnf("Retryable error on attempt %d/%d: %v", attempt, t.maxRetries, err)
	}

	logger.Errorf("dbfAgentAPI failed after %d attempts, last error: %v", t.maxRetries, lastErr)
	return "", fmt.Errorf("dbfAgentAPI failed after %d attempts: %w", t.maxRetries, lastErr)
}

// ExecuteOnce runs the command in a single attempt. A lost reply may hide a committed
// change, so no failure is retried.
func (t *CLITransport) ExecuteOnce(ctx context.Context, agentID, hexEncodedJSON string) (string, error) {
	command := fmt.Sprintf("%s execute %s", t.executablePath, hexEncodedJSON)
	logger.Debugf("Starting single dbfAgentAPI execution - agentID: %s", agentID)

	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("dbfAgentAPI rate limit wait: %w", err)
	}
	result, err := t.attempt(ctx, agentID, command)
	if err != nil {
		logger.Errorf("dbfAgentAPI single execution failed: %v", err)
		return "", err
	}
	return result, nil
}

// attempt performs a single dbfAgentAPI invocation bounded by the execution timeout.
func (t *CLITransport) attempt(ctx context.Context, agentID, command string) (string, error) {
	if t.execTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.execTimeout)
		defer cancel()
	}

	logger.Debugf("Executing command with timeout %v: sudo %s --json cmd %s '<command>'", t.execTimeout, t.apiPath, agentID)

	outputBytes, err := t.run(ctx, "sudo", t.apiPath, "--json", "cmd", agentID, command)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("dbfAgentAPI execution timed out after %v", t.execTimeout)
		}
		return "", fmt.Errorf("failed to run dbfAgentAPI: %v", err)
	}
	return parseAgentResponse(outputBytes)
}

// parseAgentResponse validates the dbfAgentAPI envelope and returns the remote stdout.
func parseAgentResponse(outputBytes []byte) (string, error) {
	var resp AgentAPIResponse
	if err := json.Unmarshal(outputBytes, &resp); err != nil {
		return "", fmt.Errorf("failed to parse dbfAgentAPI response: %v", err)
	}

	logger.Debugf("AgentAPIResponse: status=%s, exit_code=%d, client_id=%s", resp.Status, resp.ExitCode, resp.ClientID)

	switch resp.Status {
	case "timeout":
		return "", fmt.Errorf("agent command timed out: %s", resp.Message)
	case "error":
		return resp.Output, fmt.Errorf("%w with exit_code=%d: %s", errCommandFailed, resp.ExitCode, resp.Message)
	}

	if resp.ExitCode != 0 {
		logger.Warnf("Agent command returned non-zero exit code %d but status is success", resp.ExitCode)
	}
	if resp.Output == "" {
		return "", fmt.Errorf("agent command returned empty output")
	}
	return resp.Output, nil
}

// isRetryableAgentError determines if an agent API error is worth retrying. Only failures
// matching a known transient pattern are retried.
func isRetryableAgentError(err error) bool {
	if err == nil || errors.Is(err, errCommandFailed) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retryablePatterns := []string{
		"failed to parse",
		"command returned empty output",
		"connection refused",
		"timeout",
		"timed out",
		"temporary failure",
		"service unavailable",
		"context deadline exceeded",
		"dial tcp",
		"no route to host",
		"network is unreachable",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
