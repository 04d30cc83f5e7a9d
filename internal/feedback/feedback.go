// Package feedback forwards feedback hook events to the timebank tray app,
// which shows them as desktop notifications. The tray advertises itself
// through a lockfile holding "port|pid|secret".
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"golang.org/x/time/rate"

	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/events"
	"github.com/roulendz/timebank/internal/logger"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess

	// ErrTrayNotRunning means no live tray app advertised itself
	ErrTrayNotRunning = errors.New("timebank tray is not running")
	// ErrRateLimited means the notification was dropped by the limiter
	ErrRateLimited = errors.New("notification rate limited")
)

type WebhookPayload struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

type Notifier struct {
	client     *http.Client
	limiter    *rate.Limiter
	lockfile   string
	retries    int
	retryDelay time.Duration
}

type Option func(*Notifier)

// WithLockfile reads the tray lockfile from path instead of the tray's
// config directory.
func WithLockfile(path string) Option {
	return func(n *Notifier) { n.lockfile = path }
}

func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(n *Notifier) { n.limiter = l }
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(n *Notifier) {
		n.retries = max(1, attempts)
		n.retryDelay = delay
	}
}

func New(opts ...Option) *Notifier {
	n := &Notifier{
		client:     &http.Client{Timeout: 2 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(constants.FeedbackPerSecond), constants.FeedbackBurst),
		retries:    constants.FeedbackMaxRetries,
		retryDelay: constants.FeedbackRetryDelay,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Register subscribes the notifier to every feedback hook on bus. The bus
// runs hooks in their own goroutine so delivery never blocks the caller.
// The returned function unregisters.
func (n *Notifier) Register(bus *events.Bus) func() {
	names := []constants.HookName{
		constants.HookTransferSucceeded,
		constants.HookBalanceExhausted,
		constants.HookUsageRejected,
	}
	cancels := make([]func(), 0, len(names))
	for _, name := range names {
		cancels = append(cancels, bus.OnHook(name, n.handle))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func (n *Notifier) handle(e events.HookEvent) {
	if e.Message == "" {
		return
	}
	err := n.Notify(context.Background(), e.Message)
	switch {
	case err == nil:
		logger.Debug("Feedback delivered", "hook", e.Name, "user", e.UserID)
	case errors.Is(err, ErrTrayNotRunning), errors.Is(err, ErrRateLimited):
		logger.Debug("Feedback skipped", "hook", e.Name, "reason", err)
	default:
		logger.Warn("Feedback delivery failed", "hook", e.Name, "error", err)
	}
}

// Notify sends text to the tray app. Transport failures are retried; a
// missing tray is not.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	if !n.limiter.Allow() {
		return ErrRateLimited
	}

	lockfile := n.lockfile
	if lockfile == "" {
		dir, err := GetTrayAppConfigDir()
		if err != nil {
			return err
		}
		lockfile = filepath.Join(dir, constants.FeedbackLockfileName)
	}

	port, secret, err := findAndValidateTrayProcess(lockfile)
	if err != nil {
		return err
	}

	payload := WebhookPayload{
		Text:       text,
		DurationMs: constants.FeedbackDurationMs,
	}

	for attempt := 1; ; attempt++ {
		err = n.send(ctx, port, secret, payload)
		if err == nil || attempt >= n.retries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.retryDelay):
		}
	}
}

// GetTrayAppConfigDir returns the configuration directory used by the tray application.
func GetTrayAppConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	trayConfigDir := filepath.Join(configDir, constants.FeedbackAppIdentifier)

	// the tray may relocate its lockfile through its own settings
	data, err := os.ReadFile(filepath.Join(trayConfigDir, "settings.json"))
	if err == nil {
		var store struct {
			Settings struct {
				LockfileDir *string `json:"lockfile_dir"`
			} `json:"settings"`
		}
		if err := json.Unmarshal(data, &store); err == nil {
			if store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
				return *store.Settings.LockfileDir, nil
			}
		}
	}

	return trayConfigDir, nil
}

func findAndValidateTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", ErrTrayNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	if port == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", fmt.Errorf("%w (stale lockfile for PID %d)", ErrTrayNotRunning, pid)
	}
	if !strings.HasPrefix(process.Executable(), constants.FeedbackProcessPrefix) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.FeedbackProcessPrefix, process.Executable())
	}

	return port, secret, nil
}

func (n *Notifier) send(ctx context.Context, port, secret string, payload WebhookPayload) error {
	url := fmt.Sprintf("http://127.0.0.1:%s", port)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timebank-Secret", secret)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
