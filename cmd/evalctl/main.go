// evalctl runs the full evaluation pipeline against a local recording:
// normalization, local transcription with the confirmation-gated remote
// fallback, then scoring. The verdict is printed as JSON on stdout.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-interview-evaluator/internal/api"
	"ai-interview-evaluator/internal/config"
	"ai-interview-evaluator/internal/observability/logging"
	"ai-interview-evaluator/internal/rubric"
	"ai-interview-evaluator/internal/service/orchestrator"
)

func main() {
	var (
		file           = flag.String("file", "", "recording or transcript to evaluate")
		lang           = flag.String("lang", rubric.LangSpanish, "interview language (es or en)")
		rubricVersion  = flag.String("rubric", "", "rubric version (default: "+rubric.DefaultVersion+")")
		autoConfirm    = flag.Bool("yes", false, "approve the metered remote fallback without asking")
		transcribeOnly = flag.Bool("transcribe-only", false, "stop after transcription, print the transcript")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: evalctl -file recording.mp3 [-lang es] [-rubric dimensions-v2] [-yes]")
		os.Exit(2)
	}

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.Observability.LogLevel, Format: "console"})

	data, err := os.ReadFile(*file)
	if err != nil {
		fatal("reading %s: %v", *file, err)
	}

	ctx := context.Background()

	fallback, err := api.BuildFallback(ctx, cfg)
	if err != nil {
		fatal("building remote fallback: %v", err)
	}

	var confirmer orchestrator.Confirmer
	if *autoConfirm {
		confirmer = orchestrator.ConfirmerFunc(func(context.Context, string) (bool, error) {
			return true, nil
		})
	} else {
		confirmer = orchestrator.ConfirmerFunc(promptConfirm)
	}

	orch := orchestrator.New(
		api.BuildLocalEngine(cfg),
		fallback,
		confirmer,
		orchestrator.WithLocalTimeout(cfg.Local.AttemptTimeout),
		orchestrator.WithProgress(func(p orchestrator.Progress) {
			fmt.Fprintf(os.Stderr, "\r[%s] %3d%%", p.State, p.Percent)
		}),
	)

	result, err := orch.Run(ctx, orchestrator.Input{
		Filename: filepath.Base(*file),
		Data:     data,
		Language: *lang,
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUserCancelled) {
			fmt.Fprintln(os.Stderr, "cancelled")
			os.Exit(1)
		}
		fatal("transcription failed: %v", err)
	}

	if *transcribeOnly {
		fmt.Println(result.Transcript)
		return
	}

	verdict, err := api.BuildScorer(cfg).Score(ctx, result.Transcript, *lang, *rubricVersion)
	if err != nil {
		fatal("scoring failed: %v", err)
	}
	for _, w := range verdict.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(verdict); err != nil {
		fatal("encoding verdict: %v", err)
	}
}

// promptConfirm asks on the terminal before any metered remote call.
func promptConfirm(_ context.Context, reason string) (bool, error) {
	fmt.Fprintf(os.Stderr, "\nlocal transcription unavailable: %s\n", reason)
	fmt.Fprint(os.Stderr, "send the recording to the remote transcription service (this costs money)? [y/N] ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
