package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/pocketomega/pocket-eli5/internal/pipeline"
)

// defaultVideoURL is used when no URL is given and stdin is not a terminal.
const defaultVideoURL = "https://www.youtube.com/watch?v=AFY67zOpbSo"

func newRunCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Summarize one video into an HTML report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.buildApp()
			if err != nil {
				return err
			}
			flush := a.startTelemetry(cmd.Context())
			defer flush()

			out := cmd.OutOrStdout()
			url := resolveURL(args, cmd.InOrStdin(), out, stdinIsTerminal())

			fmt.Fprintf(out, "🤖 LLM: %s\n", a.describeLLM())
			fmt.Fprintf(out, "🎬 Processing %s (mode=%s)\n", url, a.deps.Options.Mode)

			started := time.Now()
			state, err := a.run(cmd.Context(), url)
			if err != nil {
				return fmt.Errorf("summarize %s: %w", url, err)
			}

			target := outputPath
			if target == "" {
				target = a.cfg.Pipeline.Output
			}
			if err := os.WriteFile(target, []byte(state.HTML), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			printRunSummary(out, state)
			fmt.Fprintf(out, "✅ Report written to %s in %s\n", target, time.Since(started).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Report destination (default from config)")
	return cmd
}

// resolveURL picks the URL from args, then an interactive prompt, then the
// default video.
func resolveURL(args []string, in io.Reader, out io.Writer, interactive bool) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	if interactive {
		fmt.Fprint(out, "Enter YouTube URL (blank for the example video): ")
		line, _ := bufio.NewReader(in).ReadString('\n')
		if url := strings.TrimSpace(line); url != "" {
			return url
		}
	}
	return defaultVideoURL
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printRunSummary(out io.Writer, state *pipeline.State) {
	fmt.Fprintf(out, "📺 %s\n", state.VideoInfo.Title)
	if state.VideoInfo.Error != "" {
		fmt.Fprintf(out, "⚠️  %s\n", state.VideoInfo.Error)
	}
	if len(state.Topics) == 0 {
		fmt.Fprintln(out, "No topics were extracted.")
		return
	}

	rows := make([][]string, 0, len(state.Topics))
	for i, t := range state.Topics {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			t.DisplayTitle(),
			strconv.Itoa(len(t.Questions)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Topic", "Questions"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight},
	))
}
