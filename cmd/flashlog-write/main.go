package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flashlog/flashlog"
	"github.com/flashlog/flashlog/internal/logging"
)

func main() {
	var (
		path        = flag.String("path", "flashlog.bin", "Path to the append-only log file")
		maxBuffer   = flag.Int64("max-buffer", 0, "Upper bound on target_batch_size in bytes (0 = default)")
		avgMsgSize  = flag.Int64("avg-msg-size", 0, "Early-cut hint in bytes (0 = default)")
		blockSize   = flag.Int64("block-size", 0, "Batch alignment unit in bytes (0 = default)")
		metricsAddr = flag.String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090)")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	opts := flashlog.DefaultOptions()
	if *maxBuffer > 0 {
		opts.MaxBuffer = *maxBuffer
	}
	if *avgMsgSize > 0 {
		opts.AvgMsgSize = *avgMsgSize
	}
	if *blockSize > 0 {
		opts.BlockSize = *blockSize
	}

	l, err := flashlog.Open(*path, opts)
	if err != nil {
		logger.Error("failed to open log", "path", *path, "error", err)
		os.Exit(1)
	}
	defer l.Shutdown()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", l.Metrics().Handler())
		go func() {
			logger.Info("serving metrics", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	logger.Info("log opened, reading lines from stdin", "path", *path)
	fmt.Fprintf(os.Stderr, "Reading lines from stdin, writing each as a payload to %s. Ctrl+D to finish.\n", *path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	var wg sync.WaitGroup
	scanner := bufio.NewScanner(os.Stdin)
readLoop:
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		line = append(line, '\n')

		select {
		case <-ctx.Done():
			break readLoop
		default:
		}

		wg.Add(1)
		go func(payload []byte) {
			defer wg.Done()
			if err := l.SubmitAndWait(payload); err != nil {
				logger.Error("submit failed", "error", err)
			}
		}(line)
	}
	wg.Wait()

	if err := scanner.Err(); err != nil {
		logger.Error("reading stdin", "error", err)
	}

	logger.Info("done, shutting down")
}
