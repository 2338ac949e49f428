package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/go-rod/screenrec/lib/utils"
	"github.com/ysmood/leakless"
)

// Pipe is a long-lived ffmpeg process fed through stdin. Its lifetime is driven by the input,
// closing the input makes ffmpeg flush its output and exit.
type Pipe struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	last  *tail

	closeOnce sync.Once
	wait      chan struct{}
	err       error
}

// StartPipe starts bin with args. The stdout of the process is copied to out, every stderr line is
// passed to log if it's not nil. When the platform supports it the process is guarded by leakless,
// so it won't outlive the current process.
func StartPipe(bin string, args []string, out io.Writer, log func(string)) (*Pipe, error) {
	if bin == "" {
		bin = "ffmpeg"
	}

	args = append([]string{"-hide_banner", "-loglevel", "info"}, args...)

	var ll *leakless.Launcher
	var cmd *exec.Cmd
	if leakless.Support() {
		ll = leakless.New()
		cmd = ll.Command(bin, args...)
	} else {
		cmd = exec.Command(bin, args...)
	}

	p := &Pipe{
		cmd:  cmd,
		last: newTail(10),
		wait: make(chan struct{}),
	}

	var err error
	p.stdin, err = cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExec, err)
	}

	if ll != nil {
		// the guard reports the pid of the real process, nobody needs it but it must be received
		go func() {
			select {
			case <-ll.Pid():
			case <-p.wait:
			}
		}()
	}

	var copyErr error
	wait := utils.All(func() {
		readLines(stderr, func(line string) {
			p.last.add(line)
			if log != nil {
				log(line)
			}
		})
	}, func() {
		_, copyErr = io.Copy(out, stdout)
	})

	go func() {
		wait()
		err := cmd.Wait()
		if err == nil {
			err = copyErr
		}
		if err != nil {
			p.err = fmt.Errorf("%w: %v\n%s", ErrExec, err, p.last)
		}
		close(p.wait)
	}()

	return p, nil
}

// Write to the stdin of the process
func (p *Pipe) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

// CloseInput closes stdin, it's safe to call multiple times
func (p *Pipe) CloseInput() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.stdin.Close()
		if errors.Is(err, io.ErrClosedPipe) {
			err = nil
		}
	})
	return err
}

// Wait until the process exits and its output is fully copied
func (p *Pipe) Wait() error {
	<-p.wait
	return p.err
}

// Done is closed when the process exits
func (p *Pipe) Done() <-chan struct{} {
	return p.wait
}
