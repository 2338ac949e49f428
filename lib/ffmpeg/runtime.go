package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-rod/screenrec/lib/utils"
	"github.com/ysmood/goob"
)

// Runtime is a lazily loaded ffmpeg instance. It's safe for concurrent use, but the caller
// should only run one job at a time if it needs the logs of a specific job.
type Runtime struct {
	ctx    context.Context
	cancel func()

	bin    string
	logger utils.Logger
	trace  bool

	lock    sync.Mutex
	loaded  bool
	loadErr error
	dir     string
	version string

	logs *goob.Observable
}

// New runtime for the ffmpeg binary. If bin is empty "ffmpeg" from the PATH is used.
func New(bin string) *Runtime {
	if bin == "" {
		bin = "ffmpeg"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runtime{
		ctx:    ctx,
		cancel: cancel,
		bin:    bin,
		logger: utils.DefaultLogger,
		logs:   goob.New(ctx),
	}
}

// Logger overrides the default logger
func (r *Runtime) Logger(l utils.Logger) *Runtime {
	r.logger = l
	return r
}

// Trace enables logging of every codec log line
func (r *Runtime) Trace(enable bool) *Runtime {
	r.trace = enable
	return r
}

// Load the runtime, only the first call does the work, later calls return the same result.
// A failed load is remembered, the runtime stays unusable until it's recreated.
// A load interrupted by ctx is not remembered, the next call tries again.
func (r *Runtime) Load(ctx context.Context) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.loaded || r.loadErr != nil {
		return r.loadErr
	}

	err := r.load(ctx)
	if err != nil && ctx.Err() != nil {
		r.logger.Println("codec load interrupted:", err)
		return err
	}

	r.loadErr = err
	r.loaded = r.loadErr == nil

	if r.loadErr != nil {
		r.logger.Println("codec load failed:", r.loadErr)
	} else {
		r.logger.Println("codec loaded:", r.version)
	}

	return r.loadErr
}

func (r *Runtime) load(ctx context.Context) error {
	bin, err := exec.LookPath(r.bin)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	out := bytes.NewBuffer(nil)
	cmd := exec.CommandContext(ctx, bin, "-hide_banner", "-version")
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: version check: %v: %s", ErrLoad, err, strings.TrimSpace(out.String()))
	}

	dir, err := os.MkdirTemp("", "screenrec-codec-")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	r.bin = bin
	r.dir = dir
	r.version = strings.SplitN(strings.TrimSpace(out.String()), "\n", 2)[0]

	return nil
}

// Loaded is the readiness flag
func (r *Runtime) Loaded() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.loaded
}

// LoadErr returns the error of the first Load
func (r *Runtime) LoadErr() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.loadErr
}

// Version line printed by the binary, such as "ffmpeg version 6.0 Copyright (c) 2000-2023 ..."
func (r *Runtime) Version() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.version
}

// Dir is the work dir of the runtime, empty before loaded
func (r *Runtime) Dir() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.dir
}

func (r *Runtime) path(name string) (string, error) {
	if !r.Loaded() {
		return "", ErrNotLoaded
	}
	if err := utils.PlainName(name); err != nil {
		return "", err
	}
	return filepath.Join(r.Dir(), name), nil
}

// WriteFile into the work dir
func (r *Runtime) WriteFile(name string, data []byte) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0600)
}

// ReadFile from the work dir
func (r *Runtime) ReadFile(name string) ([]byte, error) {
	p, err := r.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// DeleteFile from the work dir
func (r *Runtime) DeleteFile(name string) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// Exec runs ffmpeg with args inside the work dir. Each log line is published to the
// subscribers of Logs.
func (r *Runtime) Exec(ctx context.Context, args ...string) error {
	if !r.Loaded() {
		return ErrNotLoaded
	}

	last := newTail(10)

	cmd := exec.CommandContext(ctx, r.bin, append([]string{"-hide_banner", "-nostdin"}, args...)...)
	cmd.Dir = r.Dir()

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExec, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrExec, err)
	}

	readLines(stderr, func(line string) {
		last.add(line)
		if r.trace {
			r.logger.Println("[ffmpeg]", line)
		}
		r.logs.Publish(line)
	})

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v\n%s", ErrExec, err, last)
	}

	return nil
}

// Logs subscribes to the log lines of the runtime until ctx is done
func (r *Runtime) Logs(ctx context.Context) <-chan string {
	ch := make(chan string)
	s := r.logs.Subscribe(ctx)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-s:
				if !ok {
					return
				}
				select {
				case ch <- e.(string):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

// Close removes the work dir and stops publishing logs
func (r *Runtime) Close() error {
	r.cancel()

	r.lock.Lock()
	defer r.lock.Unlock()

	r.loaded = false
	if r.loadErr == nil {
		r.loadErr = ErrNotLoaded
	}

	if r.dir == "" {
		return nil
	}
	return os.RemoveAll(r.dir)
}
