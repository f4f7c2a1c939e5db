package main

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"clipbook/internal/cache"
	"clipbook/internal/history"
	"clipbook/internal/logging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show subsystem health and occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "Storage", colorize)
			if cfg.Cache.Enabled {
				store, err := cache.New(cfg.Cache.Dir, cfg.Cache.MaxMiB, logging.NewNop())
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("Cache", statusError, err.Error(), colorize))
				} else {
					entries, bytes := store.Stats()
					detail := fmt.Sprintf("%d entries, %.1f of %d MiB", entries, float64(bytes)/(1<<20), cfg.Cache.MaxMiB)
					fmt.Fprintln(out, renderStatusLine("Cache", statusOK, detail, colorize))
				}
			} else {
				fmt.Fprintln(out, renderStatusLine("Cache", statusWarn, "disabled", colorize))
			}
			if cfg.History.Enabled {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine("History", statusError, err.Error(), colorize))
				} else {
					count, cerr := store.Count(cmd.Context())
					store.Close()
					if cerr != nil {
						fmt.Fprintln(out, renderStatusLine("History", statusError, cerr.Error(), colorize))
					} else {
						fmt.Fprintln(out, renderStatusLine("History", statusOK, fmt.Sprintf("%d conversions recorded", count), colorize))
					}
				}
			} else {
				fmt.Fprintln(out, renderStatusLine("History", statusWarn, "disabled", colorize))
			}

			fmt.Fprintln(out)
			printSection(out, "Pipeline", colorize)
			fmt.Fprintln(out, renderStatusLine("Output", statusInfo, cfg.Paths.OutputDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Concurrency", statusInfo,
				fmt.Sprintf("%d jobs, %d workers", cfg.Workflow.MaxConcurrent, cfg.Workflow.WorkerPoolSize), colorize))

			if cfg.Video.Enabled {
				binary := cfg.Video.YtdlpBinary
				if binary == "" {
					binary = "yt-dlp"
				}
				if _, err := exec.LookPath(binary); err != nil {
					fmt.Fprintln(out, renderStatusLine("Subtitles", statusWarn, binary+" not found on PATH", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Subtitles", statusOK, binary, colorize))
				}
			} else {
				fmt.Fprintln(out, renderStatusLine("Subtitles", statusWarn, "disabled", colorize))
			}

			if cfg.LLM.Enabled {
				detail := fmt.Sprintf("%s (%s)", cfg.LLM.Provider, cfg.LLM.Model)
				if cfg.LLM.APIKey == "" {
					fmt.Fprintln(out, renderStatusLine("Rewriter", statusError, detail+", api key missing", colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Rewriter", statusOK, detail, colorize))
				}
			} else {
				fmt.Fprintln(out, renderStatusLine("Rewriter", statusWarn, "disabled", colorize))
			}

			if cfg.Notifications.NtfyTopic != "" {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "ntfy topic configured", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn, "not configured", colorize))
			}

			return nil
		},
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}
