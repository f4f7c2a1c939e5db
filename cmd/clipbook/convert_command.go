package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipbook/internal/workflow"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		title     string
		style     string
		words     int
		author    string
		language  string
		tags      []string
		combine   bool
		edit      bool
		separator string
	)

	cmd := &cobra.Command{
		Use:   "convert [file|url|-]...",
		Short: "Convert clipped content into styled documents",
		Long: "Convert reads each input (a file path, a URL, or - for stdin), detects its\n" +
			"format, and writes a styled, chaptered document to the output directory.\n" +
			"With --combine all inputs are merged into a single document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				inputs, err := collectInputs(cmd.InOrStdin(), args)
				if err != nil {
					return err
				}

				var editFn workflow.EditFunc
				if edit {
					editFn = editInEditor
				}

				base := workflow.Request{
					SuggestedTitle:  title,
					Style:           style,
					WordsPerChapter: words,
					Author:          author,
					Language:        language,
					Tags:            tags,
					Edit:            editFn,
				}

				if combine {
					acc := a.manager.Accumulator()
					for _, input := range inputs {
						acc.Add(input.content)
					}
					if acc.Len() == 0 {
						return fmt.Errorf("nothing to convert: all inputs were empty or duplicates")
					}
					req := base
					req.Content = acc.Combine(separator)
					if req.SuggestedTitle == "" && len(inputs) > 0 {
						req.SuggestedTitle = inputs[0].label
					}
					outcome, err := a.manager.ConvertSync(cmd.Context(), req)
					if err != nil {
						return err
					}
					printOutcomes(cmd.OutOrStdout(), []workflow.Outcome{outcome})
					return nil
				}

				type pending struct {
					label string
					jobID string
				}
				jobs := make([]pending, 0, len(inputs))
				for _, input := range inputs {
					req := base
					req.Content = input.content
					if req.SuggestedTitle == "" && input.fromFile {
						req.SuggestedTitle = input.label
					}
					jobID, err := a.manager.Submit(req)
					if err != nil {
						return fmt.Errorf("%s: %w", input.label, err)
					}
					jobs = append(jobs, pending{label: input.label, jobID: jobID})
				}

				outcomes := make([]workflow.Outcome, 0, len(jobs))
				var failed int
				for _, job := range jobs {
					outcome, err := a.manager.Wait(cmd.Context(), job.jobID)
					if err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", job.label, err)
						continue
					}
					outcomes = append(outcomes, outcome)
				}
				printOutcomes(cmd.OutOrStdout(), outcomes)
				if failed > 0 {
					return fmt.Errorf("%d of %d conversions failed", failed, len(jobs))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (defaults to detected metadata)")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Style template name")
	cmd.Flags().IntVarP(&words, "words-per-chapter", "w", 0, "Approximate words per chapter")
	cmd.Flags().StringVar(&author, "author", "", "Document author")
	cmd.Flags().StringVar(&language, "language", "", "Document language code")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag recorded with the history entry (repeatable)")
	cmd.Flags().BoolVar(&combine, "combine", false, "Merge all inputs into a single document")
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "Open $EDITOR to adjust content before conversion")
	cmd.Flags().StringVar(&separator, "separator", "", "Divider between combined inputs")

	return cmd
}

type convertInput struct {
	label    string
	content  string
	fromFile bool
}

// collectInputs reads each argument: "-" means stdin, http(s) arguments are
// passed through as URL content, anything else is a file path. No arguments
// means stdin.
func collectInputs(stdin io.Reader, args []string) ([]convertInput, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	inputs := make([]convertInput, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		switch {
		case arg == "-":
			data, err := io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("read stdin: %w", err)
			}
			inputs = append(inputs, convertInput{label: "stdin", content: string(data)})
		case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
			inputs = append(inputs, convertInput{label: arg, content: arg})
		default:
			data, err := os.ReadFile(arg)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", arg, err)
			}
			label := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
			inputs = append(inputs, convertInput{label: label, content: string(data), fromFile: true})
		}
	}
	return inputs, nil
}

// editInEditor round-trips content through $EDITOR. An editor failure keeps
// the original content; an emptied buffer cancels the job.
func editInEditor(ctx context.Context, content string) (string, bool) {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	tmp, err := os.CreateTemp("", "clipbook-edit-*.txt")
	if err != nil {
		return content, true
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return content, true
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return content, true
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return content, true
	}
	if strings.TrimSpace(string(edited)) == "" {
		return "", false
	}
	return string(edited), true
}

func printOutcomes(out io.Writer, outcomes []workflow.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	headers := []string{"Title", "Kind", "Chapters", "Cache", "Output"}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		source := "built"
		if o.CacheHit {
			source = "hit"
		}
		rows = append(rows, []string{
			o.Title,
			string(o.Kind),
			fmt.Sprintf("%d", o.ChapterCount),
			source,
			o.OutputPath,
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}))
}
