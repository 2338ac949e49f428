// A tool to record a web page or a piece of html as a video
package main

import (
	"fmt"
	"os"
)

func main() {
	// zombie ffmpeg and browser processes pile up when running as the init process of a container
	if os.Getpid() == 1 {
		runReaper()
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
