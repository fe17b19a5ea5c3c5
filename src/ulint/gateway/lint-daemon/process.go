package lintdaemon

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/multierr"
)

// Process is a running daemon whose standard streams are owned by the client.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until the process exits. It does not wait for Stdout and Stderr to be drained,
	// since forked children may keep them open after the daemon itself is gone.
	Wait() error
	// CloseOutput closes the read side of Stdout and Stderr, unblocking pending reads. It may be called more than once.
	CloseOutput() error
	Kill() error
	Pid() int
}

// Spawner starts a daemon process from its command line.
type Spawner func(cmdLine []string) (Process, error)

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File

	closeOnce sync.Once
	closeErr  error
}

// SpawnExec starts the daemon as an OS process in its own process group.
func SpawnExec(cmdLine []string) (Process, error) {
	if len(cmdLine) == 0 {
		return nil, errors.New("empty daemon command line")
	}

	cmd := exec.Command(cmdLine[0], cmdLine[1:]...)
	setProcessGroup(cmd)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	// Plain pipes keep Wait independent of the readers.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, multierr.Combine(err, stdoutR.Close(), stdoutW.Close())
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	startErr := cmd.Start()
	// The child holds its own copies of the write ends.
	closeErr := multierr.Combine(stdoutW.Close(), stderrW.Close())
	if startErr != nil {
		return nil, multierr.Combine(startErr, stdoutR.Close(), stderrR.Close())
	}
	if closeErr != nil {
		_ = killProcess(cmd)
		return nil, multierr.Combine(closeErr, cmd.Wait(), stdoutR.Close(), stderrR.Close())
	}

	return &execProcess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdoutR,
		stderr: stderrR,
	}, nil
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() io.Reader     { return p.stderr }
func (p *execProcess) Wait() error           { return p.cmd.Wait() }

func (p *execProcess) CloseOutput() error {
	p.closeOnce.Do(func() {
		p.closeErr = multierr.Combine(p.stdout.Close(), p.stderr.Close())
	})
	return p.closeErr
}

// Kill stops the daemon together with any process it forked.
func (p *execProcess) Kill() error {
	if err := killProcess(p.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}
