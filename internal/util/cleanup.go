package util

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
)

// SetupInterruptHandler returns a context that is cancelled on the first
// interrupt. A second interrupt removes partial output and exits.
func SetupInterruptHandler(parent context.Context, outputDir string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
		case <-ctx.Done():
			signal.Stop(sig)
			return
		}
		fmt.Fprintln(os.Stderr, "\nInterrupt received. Stopping after in-flight chapters are abandoned...")
		cancel()

		<-sig
		CleanupPartialFiles(outputDir)
		fmt.Fprintln(os.Stderr, "\nExiting due to interrupt.")
		os.Exit(1)
	}()

	return ctx, func() {
		cancel()
		signal.Stop(sig)
	}
}

// CleanupPartialFiles removes scratch files left by WriteFileAtomic.
func CleanupPartialFiles(outputDir string) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return
	}

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, partialSuffix) {
			full := filepath.Join(outputDir, name)

			if err := os.Remove(full); err != nil {
				fmt.Fprintf(os.Stderr, "Error cleaning up %s: %v\n", full, err)
			} else {
				fmt.Fprintf(os.Stderr, "Removed %s\n", full)
			}
		}
	}
}
