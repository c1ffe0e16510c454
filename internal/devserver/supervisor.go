package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/USA-RedDragon/camper-server/internal/utils"
	"golang.org/x/sys/unix"
)

const (
	defaultGracePeriod = 5 * time.Second
	healthTimeout      = 2 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("development server is already running")
	ErrNotRunning     = errors.New("development server is not running")
	ErrNoCommand      = errors.New("development server command is not configured")
)

type Status struct {
	Running   bool       `json:"running"`
	PID       int        `json:"pid,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	Healthy   bool       `json:"healthy"`
	Command   []string   `json:"command"`
	LastExit  string     `json:"lastExit,omitempty"`
}

// Supervisor owns at most one development server process.
type Supervisor struct {
	config  config.DevServer
	metrics *metrics.Metrics
	grace   time.Duration

	mu        sync.Mutex
	cmd       *exec.Cmd
	done      chan struct{}
	startedAt time.Time
	lastExit  string
}

func NewSupervisor(cfg config.DevServer, metrics *metrics.Metrics) *Supervisor {
	return &Supervisor{
		config:  cfg,
		metrics: metrics,
		grace:   defaultGracePeriod,
	}
}

func (s *Supervisor) Start() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.config.Command) == 0 {
		return Status{}, ErrNoCommand
	}
	if s.cmd != nil {
		return s.statusLocked(), ErrAlreadyRunning
	}

	//nolint:gosec // the command comes from the server configuration
	cmd := exec.Command(s.config.Command[0], s.config.Command[1:]...)
	cmd.Dir = s.config.Directory
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Own process group so the whole tree can be signalled
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return Status{}, fmt.Errorf("failed to start development server: %w", err)
	}

	done := make(chan struct{})
	s.cmd = cmd
	s.done = done
	s.startedAt = time.Now().UTC()
	s.lastExit = ""
	s.metrics.SetDevServerRunning(true)
	slog.Info("Started development server", "pid", cmd.Process.Pid, "command", s.config.Command)

	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		if err != nil {
			s.lastExit = err.Error()
		} else {
			s.lastExit = "exit status 0"
		}
		s.cmd = nil
		s.mu.Unlock()
		s.metrics.SetDevServerRunning(false)
		slog.Info("Development server exited", "pid", cmd.Process.Pid, "result", s.lastExitValue())
		close(done)
	}()

	return s.statusLocked(), nil
}

func (s *Supervisor) lastExitValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExit
}

// Stop sends SIGTERM to the process group and SIGKILL once the grace period runs out.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()
	if cmd == nil {
		return ErrNotRunning
	}

	pgid := -cmd.Process.Pid
	if err := unix.Kill(pgid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed to signal development server: %w", err)
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		slog.Warn("Development server ignored SIGTERM, killing it", "pid", cmd.Process.Pid)
	case <-ctx.Done():
	}
	if err := unix.Kill(pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed to kill development server: %w", err)
	}
	<-done
	return nil
}

// Status reports the process state and probes the health URL while it runs.
func (s *Supervisor) Status(ctx context.Context) Status {
	s.mu.Lock()
	status := s.statusLocked()
	s.mu.Unlock()

	if status.Running && s.config.HealthURL != "" {
		status.Healthy = s.healthy(ctx)
	}
	return status
}

func (s *Supervisor) statusLocked() Status {
	status := Status{
		Command:  s.config.Command,
		LastExit: s.lastExit,
	}
	if s.cmd != nil {
		startedAt := s.startedAt
		status.Running = true
		status.PID = s.cmd.Process.Pid
		status.StartedAt = &startedAt
	}
	return status
}

func (s *Supervisor) healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	resp, err := utils.HTTPRequest(ctx, http.MethodGet, s.config.HealthURL, nil, nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
