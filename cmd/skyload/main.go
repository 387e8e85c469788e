package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/skyload/skyload/internal/cli"
	"github.com/skyload/skyload/pkg/skyload"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(skyload.ExitPanic)
		}
	}()

	if os.Getenv("SKYLOAD_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(skyload.ExitCodeForError(err))
	}
}
