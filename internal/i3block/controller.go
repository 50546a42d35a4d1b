package i3block

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

const refreshInterval = 10 * time.Second

var logger = log.With().Str("component", "i3block").Logger()

// Controller tracks the status bar process and signals it to refresh the
// lyrics block after each broadcast.
type Controller struct {
	process   string
	signal    syscall.Signal
	pid       int
	pidMutex  sync.RWMutex
	ticker    *time.Ticker
	stopChan  chan struct{}
	isRunning bool
	runMutex  sync.Mutex
}

// NewController process 为进程名（默认 i3blocks），signal 为实时信号编号
func NewController(process string, signal int) *Controller {
	if process == "" {
		process = "i3blocks"
	}
	return &Controller{
		process: process,
		signal:  syscall.Signal(signal),
		pid:     -1,
	}
}

// Start begins refreshing the PID every 10 seconds
func (c *Controller) Start() error {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()

	if c.isRunning {
		return fmt.Errorf("controller is already running")
	}

	if err := c.refreshPID(); err != nil {
		logger.Warn().Err(err).Str("process", c.process).Msg("Status bar process not found yet")
	}

	c.stopChan = make(chan struct{})
	c.ticker = time.NewTicker(refreshInterval)
	c.isRunning = true

	go c.monitorLoop(c.ticker, c.stopChan)

	logger.Info().Str("process", c.process).Int("signal", int(c.signal)).Msg("i3block controller started")
	return nil
}

// Stop stops the controller
func (c *Controller) Stop() {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()

	if !c.isRunning {
		return
	}

	close(c.stopChan)
	c.ticker.Stop()
	c.isRunning = false

	logger.Info().Msg("i3block controller stopped")
}

func (c *Controller) monitorLoop(ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			if err := c.refreshPID(); err != nil {
				logger.Debug().Err(err).Msg("Failed to refresh i3block PID")
			}
		case <-stop:
			return
		}
	}
}

func (c *Controller) setPID(pid int) {
	c.pidMutex.Lock()
	oldPID := c.pid
	c.pid = pid
	c.pidMutex.Unlock()

	if oldPID != pid {
		logger.Info().Int("old_pid", oldPID).Int("pid", pid).Msg("i3block PID updated")
	}
}

func (c *Controller) refreshPID() error {
	output, err := exec.Command("pgrep", "-x", c.process).Output()
	if err != nil {
		return c.refreshPIDAlternative()
	}

	pid, err := parsePID(string(output))
	if err != nil {
		c.setPID(-1)
		return err
	}
	c.setPID(pid)
	return nil
}

// refreshPIDAlternative 没有 pgrep 时退回到 ps
func (c *Controller) refreshPIDAlternative() error {
	output, err := exec.Command("ps", "-eo", "pid=,comm=").Output()
	if err != nil {
		return fmt.Errorf("failed to run ps command: %w", err)
	}

	if pid, ok := findPIDInPS(string(output), c.process); ok {
		c.setPID(pid)
		return nil
	}

	c.setPID(-1)
	return fmt.Errorf("%s process not found", c.process)
}

// parsePID 取 pgrep 输出的第一个 PID
func parsePID(output string) (int, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return 0, fmt.Errorf("process not found")
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("failed to parse PID %q", fields[0])
	}
	return pid, nil
}

func findPIDInPS(output, process string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != process {
			continue
		}
		if pid, err := strconv.Atoi(fields[0]); err == nil && pid > 0 {
			return pid, true
		}
	}
	return 0, false
}

// GetPID returns the current stored PID
func (c *Controller) GetPID() int {
	c.pidMutex.RLock()
	defer c.pidMutex.RUnlock()
	return c.pid
}

// Notify sends the configured signal so the bar re-reads the status file
func (c *Controller) Notify() error {
	pid := c.GetPID()
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d, %s process not found", pid, c.process)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(c.signal); err != nil {
		return fmt.Errorf("failed to send signal %d to process %d: %w", int(c.signal), pid, err)
	}
	return nil
}

// IsRunning returns whether the controller is currently running
func (c *Controller) IsRunning() bool {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()
	return c.isRunning
}
