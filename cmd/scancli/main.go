// Command scancli analyzes one or more URLs for phishing/malware risk and
// prints a JSON verdict per URL. A single target runs inline; a list file
// fans out across pkg/runner's worker pool and streams one JSON object per
// line as each scan completes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/qrshield/urlscan/pkg/config"
	"github.com/qrshield/urlscan/pkg/jsonutil"
	"github.com/qrshield/urlscan/pkg/orchestrator"
	"github.com/qrshield/urlscan/pkg/runner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fileCfg, err := config.LoadFile(os.Getenv("URLSCAN_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "scancli:", err)
		return 1
	}
	cfg, err := config.ParseFlags(fileCfg, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scancli:", err)
		return 1
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var out io.Writer = os.Stdout
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "scancli: creating output file:", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	orch := orchestrator.New()

	if cfg.ListFile != "" {
		return runBatch(ctx, orch, cfg, out)
	}
	return runSingle(ctx, orch, cfg, out)
}

func runSingle(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config, out io.Writer) int {
	result, err := orch.Scan(ctx, cfg.TargetURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scancli:", err)
		return 1
	}
	if err := writeResult(out, cfg.OutputFormat, result); err != nil {
		fmt.Fprintln(os.Stderr, "scancli: writing result:", err)
		return 1
	}
	return 0
}

func runBatch(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config, out io.Writer) int {
	targets, err := readTargets(cfg.ListFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scancli:", err)
		return 1
	}
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "scancli: list file contains no targets")
		return 1
	}

	r := runner.NewRunner[*orchestrator.ScanResult]()
	r.Concurrency = cfg.Concurrency
	r.Timeout = cfg.RequestTimeout

	exitCode := 0
	enc := jsonutil.NewStreamEncoder(out)

	r.RunWithCallback(ctx, targets, func(taskCtx context.Context, target string) (*orchestrator.ScanResult, error) {
		return orch.Scan(taskCtx, target)
	}, func(res runner.Result[*orchestrator.ScanResult]) {
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "scancli: %s: %v\n", res.Target, res.Error)
			exitCode = 1
			return
		}
		if err := enc.Encode(res.Data); err != nil {
			fmt.Fprintf(os.Stderr, "scancli: encoding result for %s: %v\n", res.Target, err)
			exitCode = 1
		}
	})

	fmt.Fprintf(os.Stderr, "scancli: %d/%d scanned, %d failed\n", r.Stats.Completed, r.Stats.Total, r.Stats.Failed)
	return exitCode
}

func writeResult(out io.Writer, format string, result *orchestrator.ScanResult) error {
	if format == "jsonl" {
		return jsonutil.NewStreamEncoder(out).Encode(result)
	}
	data, err := jsonutil.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = out.Write(append(data, '\n'))
	return err
}

func readTargets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening list file: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	return targets, scanner.Err()
}
