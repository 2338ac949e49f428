package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Logger interface
type Logger interface {
	// Same as fmt.Printf
	Println(...interface{})
}

// Log type for Println
type Log func(msg ...interface{})

// Println interface
func (l Log) Println(msg ...interface{}) {
	l(msg...)
}

// LoggerQuiet does nothing
var LoggerQuiet Logger = Log(func(_ ...interface{}) {})

// DefaultLogger for the whole module
var DefaultLogger Logger = log.New(os.Stdout, "[screenrec] ", log.LstdFlags)

// E if the last arg is error, panic it
func E(args ...interface{}) []interface{} {
	err, ok := args[len(args)-1].(error)
	if ok {
		panic(err)
	}
	return args
}

// Mkdir makes dir recursively
func Mkdir(path string) error {
	return os.MkdirAll(path, 0775)
}

// OutputFile auto creates the parent dir if not exists, data can be []byte or string
func OutputFile(p string, data interface{}) error {
	_ = Mkdir(filepath.Dir(p))

	var bin []byte

	switch t := data.(type) {
	case []byte:
		bin = t
	case string:
		bin = []byte(t)
	default:
		return fmt.Errorf("unsupported output type %T", data)
	}

	return os.WriteFile(p, bin, 0664)
}

// ISOTime formats t the way javascript's Date.prototype.toISOString does, such as
// "2020-05-13T08:05:09.123Z"
func ISOTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// HMS parses the "hh", "mm", "ss" parts of a clock string into seconds.
// Parts that fail to parse count as zero.
func HMS(hours, minutes, seconds string) int {
	n := func(s string) int {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || v < 0 {
			return 0
		}
		return v
	}
	return n(hours)*3600 + n(minutes)*60 + n(seconds)
}

// Sleeper sleeps for sometime, returns the reason to wake, if ctx is done release resource
type Sleeper func(context.Context) error

// ErrMaxSleepCount type
type ErrMaxSleepCount struct {
	Max int
}

func (e *ErrMaxSleepCount) Error() string {
	return fmt.Sprintf("max sleep count %d exceeded", e.Max)
}

// Is interface
func (e *ErrMaxSleepCount) Is(err error) bool {
	_, ok := err.(*ErrMaxSleepCount)
	return ok
}

// CountSleeper wakes immediately. When counts to the max returns *ErrMaxSleepCount
func CountSleeper(max int) Sleeper {
	count := 0
	return func(ctx context.Context) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if count == max {
			return &ErrMaxSleepCount{max}
		}
		count++
		return nil
	}
}

// IntervalSleeper sleeps d each time it gets called, it wakes early with the ctx error
// when the ctx is done.
func IntervalSleeper(d time.Duration) Sleeper {
	return func(ctx context.Context) error {
		if d <= 0 {
			return ctx.Err()
		}

		t := time.NewTimer(d)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		return nil
	}
}

// EachSleepers returns a sleeper that wakes up when all sleepers are awake.
// If a sleeper returns error, it will wake up immediately.
func EachSleepers(list ...Sleeper) Sleeper {
	return func(ctx context.Context) error {
		for _, s := range list {
			err := s(ctx)
			if err != nil {
				return err
			}
		}

		return nil
	}
}

// Retry fn and sleeper until fn returns true or s returns error
func Retry(ctx context.Context, s Sleeper, fn func() (stop bool, err error)) error {
	for {
		stop, err := fn()
		if stop {
			return err
		}
		err = s(ctx)
		if err != nil {
			return err
		}
	}
}

// All run all actions concurrently, returns the wait function for all actions.
func All(actions ...func()) func() {
	wg := &sync.WaitGroup{}

	wg.Add(len(actions))

	runner := func(action func()) {
		defer wg.Done()
		action()
	}

	for _, action := range actions {
		go runner(action)
	}

	return wg.Wait
}

// ErrNameNotPlain is returned when a file name contains path elements
var ErrNameNotPlain = errors.New("file name must not contain path elements")

// PlainName makes sure name refers to a file directly inside a dir
func PlainName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrNameNotPlain, name)
	}
	return nil
}
