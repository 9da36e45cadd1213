// Package supervisor spawns the local helper services as child processes
// and manages their lifecycle: health-checked startup, all-or-nothing
// semantics, and a multi-phase teardown that never fails.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	defaultHealthPath   = "/health"
	defaultStartTimeout = 20 * time.Second
	defaultPollInterval = 500 * time.Millisecond
	defaultProbeTimeout = 1 * time.Second

	// Per-process share of the teardown budget and the liveness poll step.
	stopWaitPerProc = 5 * time.Second
	stopPoll        = 200 * time.Millisecond
	logTailLines    = 10
)

// ServiceSpec describes one helper service the supervisor owns.
type ServiceSpec struct {
	Name         string        // registry key, also names the log file
	Command      []string      // argv, Command[0] is the executable
	URL          string        // base URL, e.g. http://127.0.0.1:8081
	Dir          string        // working directory; empty inherits the supervisor's
	HealthPath   string        // defaults to /health
	StartTimeout time.Duration // defaults to 20s
	Env          []string      // extra KEY=VALUE pairs appended to the environment
}

type managedProcess struct {
	spec    ServiceSpec
	cmd     *exec.Cmd
	logFile *os.File
	logPath string
	done    chan struct{} // closed once the process is reaped
}

// exited reports whether the child has terminated and been reaped.
func (p *managedProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Supervisor starts and stops a fixed registry of helper services.
// StartAll and StopAll are safe for concurrent use.
type Supervisor struct {
	mu      sync.Mutex
	specs   []ServiceSpec
	procs   map[string]*managedProcess
	started bool // set after a fully successful StartAll, cleared by StopAll

	logDir       string
	pollInterval time.Duration
	stopWait     time.Duration // per-process share of the teardown budget
	client       *http.Client
}

// Option adjusts Supervisor defaults.
type Option func(*Supervisor)

// WithLogDir sets the directory service logs are written to.
func WithLogDir(dir string) Option {
	return func(s *Supervisor) { s.logDir = dir }
}

// WithPollInterval overrides the health poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.pollInterval = d }
}

// WithStopWait overrides the per-process teardown wait budget.
func WithStopWait(d time.Duration) Option {
	return func(s *Supervisor) { s.stopWait = d }
}

// New builds a supervisor over the given service registry.
func New(specs []ServiceSpec, opts ...Option) *Supervisor {
	s := &Supervisor{
		specs:        specs,
		procs:        make(map[string]*managedProcess),
		logDir:       "logs",
		pollInterval: defaultPollInterval,
		stopWait:     stopWaitPerProc,
		client:       &http.Client{Timeout: defaultProbeTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartAll starts every registered service and waits for each to become
// healthy. If any service fails, everything already started is stopped and
// a single error listing every failure is returned. Calling it again after
// a successful start is a no-op; the running services are left alone.
func (s *Supervisor) StartAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if len(s.specs) == 0 {
		return nil
	}

	var errs []error
	for _, spec := range s.specs {
		if err := s.startOne(ctx, spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", spec.Name, err))
		}
	}
	if len(errs) > 0 {
		s.stopLocked()
		return fmt.Errorf("start helper services: %w", errors.Join(errs...))
	}
	s.started = true
	return nil
}

// startOne spawns a single service and polls it to health. Caller holds the
// mutex.
func (s *Supervisor) startOne(ctx context.Context, spec ServiceSpec) error {
	if _, ok := s.procs[spec.Name]; ok {
		return errors.New("already running")
	}
	if len(spec.Command) == 0 {
		return errors.New("empty command")
	}

	if err := os.MkdirAll(s.logDir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logPath := filepath.Join(s.logDir, spec.Name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log sink: %w", err)
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), spec.Env...)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("spawn %q: %w", spec.Command[0], err)
	}
	log.Printf("supervisor: started %s (pid %d), logging to %s", spec.Name, cmd.Process.Pid, logPath)

	proc := &managedProcess{
		spec:    spec,
		cmd:     cmd,
		logFile: logFile,
		logPath: logPath,
		done:    make(chan struct{}),
	}
	// Reap in the background so the liveness checks below see real exits
	// instead of zombies.
	go func() {
		cmd.Wait()
		close(proc.done)
	}()

	if err := s.waitHealthy(ctx, proc); err != nil {
		s.killAndReap(proc)
		if cerr := logFile.Close(); cerr != nil {
			log.Printf("WARNING: supervisor: close log sink for %s: %v", spec.Name, cerr)
		}
		return err
	}

	s.procs[spec.Name] = proc
	log.Printf("supervisor: %s is healthy", spec.Name)
	return nil
}

// waitHealthy polls the service's health endpoint until it answers, the
// start timeout elapses, or the process dies.
func (s *Supervisor) waitHealthy(ctx context.Context, proc *managedProcess) error {
	spec := proc.spec
	healthPath := spec.HealthPath
	if healthPath == "" {
		healthPath = defaultHealthPath
	}
	timeout := spec.StartTimeout
	if timeout <= 0 {
		timeout = defaultStartTimeout
	}

	healthURL := strings.TrimRight(spec.URL, "/") + healthPath
	target := healthURL
	fellBack := false

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("wait for health: %w", err)
		}
		if proc.exited() {
			return fmt.Errorf("exited during startup (%s)\nlast log lines:\n%s",
				exitStatus(proc.cmd), logTail(proc.logPath, logTailLines))
		}

		resp, err := s.client.Get(target)
		if err == nil {
			code := resp.StatusCode
			resp.Body.Close()
			switch {
			case code >= 200 && code < 300:
				return nil
			case fellBack:
				// Root answered at all, service is up.
				return nil
			case code == http.StatusNotFound:
				// Health path unknown to this service. Fall back to the
				// root URL for the rest of the window.
				fellBack = true
				target = spec.URL
				continue
			}
		}
		time.Sleep(s.pollInterval)
	}
	return fmt.Errorf("not healthy after %s (log: %s)", timeout, proc.logPath)
}

// StopAll tears down every running service. It never returns an error and
// is safe to call repeatedly; a second call is a no-op.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	procs := s.procs
	s.procs = make(map[string]*managedProcess)
	s.started = false
	s.mu.Unlock()

	if len(procs) == 0 {
		return
	}
	s.teardown(procs)
}

// stopLocked is StopAll for callers already holding the mutex.
func (s *Supervisor) stopLocked() {
	procs := s.procs
	s.procs = make(map[string]*managedProcess)
	s.started = false
	if len(procs) == 0 {
		return
	}
	s.teardown(procs)
}

func (s *Supervisor) teardown(procs map[string]*managedProcess) {
	// Phase 1: ask nicely.
	for _, p := range procs {
		if !p.exited() {
			if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
				log.Printf("WARNING: supervisor: signal %s: %v", p.spec.Name, err)
			}
		}
	}

	// Phase 2: bounded wait, proportional to how many we are stopping.
	deadline := time.Now().Add(s.stopWait * time.Duration(len(procs)))
	for time.Now().Before(deadline) {
		if allExited(procs) {
			break
		}
		time.Sleep(stopPoll)
	}

	// Phase 3: force-kill stragglers, then reap everything.
	for _, p := range procs {
		if !p.exited() {
			log.Printf("WARNING: supervisor: %s did not stop in time, killing", p.spec.Name)
			if err := p.cmd.Process.Kill(); err != nil {
				log.Printf("WARNING: supervisor: kill %s: %v", p.spec.Name, err)
			}
		}
	}
	for _, p := range procs {
		select {
		case <-p.done:
		case <-time.After(2 * time.Second):
			log.Printf("WARNING: supervisor: %s not reaped after kill", p.spec.Name)
		}
	}

	// Phase 4: release the log sinks.
	for _, p := range procs {
		if err := p.logFile.Close(); err != nil {
			log.Printf("WARNING: supervisor: close log sink for %s: %v", p.spec.Name, err)
		}
		log.Printf("supervisor: stopped %s", p.spec.Name)
	}
}

// killAndReap forces a single process down after a failed startup.
func (s *Supervisor) killAndReap(proc *managedProcess) {
	if proc.exited() {
		return
	}
	if err := proc.cmd.Process.Kill(); err != nil {
		log.Printf("WARNING: supervisor: kill %s: %v", proc.spec.Name, err)
	}
	select {
	case <-proc.done:
	case <-time.After(2 * time.Second):
		log.Printf("WARNING: supervisor: %s not reaped after kill", proc.spec.Name)
	}
}

// Running returns the names of services currently tracked as running.
func (s *Supervisor) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.procs))
	for name := range s.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func allExited(procs map[string]*managedProcess) bool {
	for _, p := range procs {
		if !p.exited() {
			return false
		}
	}
	return true
}

func exitStatus(cmd *exec.Cmd) string {
	if cmd.ProcessState == nil {
		return "unknown status"
	}
	return cmd.ProcessState.String()
}

// logTail returns up to n trailing lines of the file at path.
func logTail(path string, n int) string {
	f, err := os.Open(path)
	if err != nil {
		return "(no log output)"
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if len(lines) == 0 {
		return "(no log output)"
	}
	return strings.Join(lines, "\n")
}
