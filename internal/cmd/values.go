package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cameronsjo/helmdeck/internal/client"
	"github.com/cameronsjo/helmdeck/internal/config"
	"github.com/cameronsjo/helmdeck/internal/edit"
	"github.com/cameronsjo/helmdeck/internal/snapshot"
	"github.com/cameronsjo/helmdeck/internal/ui"
	"github.com/cameronsjo/helmdeck/internal/values"
)

var (
	valuesOutput          string
	valuesInput           string
	valuesQuote           bool
	valuesEditQuote       bool
	valuesStrict          bool
	valuesAllowNoRegistry bool
)

// isTerminal reports whether stdin is interactive. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Read and write release values",
	Long: `Release values are shown and edited as indented text:

  replicaCount: 2
  image:
    repository: nginx
    tag: "1.25"
  ports:
    - 80
    - 443
  notes: |
    first line
    second line

Unquoted true, false, null and numbers are read as such; everything else
is a string. Quote a value to keep it a string.

Commands:
  get        Print a release's values
  set        Replace values from a file
  edit       Edit values in $VISUAL or $EDITOR
  encode     Convert JSON to text
  decode     Convert text to JSON
  lint       Report text that may not mean what it says
  snapshots  List saved copies of earlier values
  restore    Send a saved copy back to the backend`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var valuesGetCmd = &cobra.Command{
	Use:               "get <namespace/name>",
	Short:             "Print a release's values as text",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			doc, err := c.GetValues(ctx, namespace, name)
			if err != nil {
				return fmt.Errorf("get values: %w", err)
			}
			return writeOutput(cmd, valuesOutput, []byte(values.Encode(doc, encodeOptions()...)))
		})
	},
}

var valuesSetCmd = &cobra.Command{
	Use:   "set <namespace/name>",
	Short: "Replace a release's values from a text file",
	Long: `Replaces a release's values with the text read from --file (or stdin).
Nothing is sent when the text decodes to the current values, in any key
order.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, valuesInput)
		if err != nil {
			return err
		}

		return withClient(cmd, func(ctx context.Context, c *client.Client, cfg *config.Config) error {
			res, err := edit.Apply(ctx, c, args[0], string(data), sessionOptions(cfg, false))
			if res != nil {
				warnFindings(cmd, res.Findings)
			}
			if err != nil {
				return err
			}
			reportResult(args[0], res)
			return nil
		})
	},
}

var valuesEditCmd = &cobra.Command{
	Use:   "edit <namespace/name>",
	Short: "Edit a release's values in $VISUAL or $EDITOR",
	Long: `Opens the release's values in an editor and submits the result.
The release is locked against other helmdeck edits until the editor exits.

With --file the editor is skipped and the file's text is submitted as the
edited document, which is useful in scripts.

Key order is not compared: an edit that only reorders keys reports
"No changes" and sends nothing.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if valuesInput == "" && !isTerminal() {
			return fmt.Errorf("values edit needs a terminal; use --file or values set")
		}

		return withClient(cmd, func(ctx context.Context, c *client.Client, cfg *config.Config) error {
			s, err := edit.NewSession(c, args[0], sessionOptions(cfg, valuesEditQuote))
			if err != nil {
				return err
			}
			if err := s.Open(ctx); err != nil {
				return err
			}
			defer s.Close()

			original, err := s.Text()
			if err != nil {
				return err
			}

			var edited string
			if valuesInput != "" {
				data, err := readInput(cmd, valuesInput)
				if err != nil {
					return err
				}
				edited = string(data)
			} else {
				edited, err = runEditor(cfg.Editor, s.ID(), original)
				if err != nil {
					return err
				}
			}

			if edited == original {
				ui.Info("No changes")
				return nil
			}

			res, err := s.Submit(ctx, edited)
			if res != nil {
				warnFindings(cmd, res.Findings)
			}
			if err != nil {
				if valuesInput == "" {
					if path, saveErr := saveRejected(s.ID(), edited); saveErr == nil {
						ui.Info("Edited text saved to %s", path)
					}
				}
				return err
			}
			reportResult(s.ID(), res)
			return nil
		})
	},
}

var valuesEncodeCmd = &cobra.Command{
	Use:   "encode [file]",
	Short: "Convert a JSON values object to text",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}

		doc := values.NewMapping()
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("parse JSON: %w", err)
		}
		return writeOutput(cmd, valuesOutput, []byte(values.Encode(doc, encodeOptions()...)))
	},
}

var valuesDecodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Convert text to a JSON values object",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(values.Decode(string(data)), "", "  ")
		if err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return writeOutput(cmd, valuesOutput, append(out, '\n'))
	},
}

var valuesLintCmd = &cobra.Command{
	Use:   "lint [file]",
	Short: "Report text that may not mean what it says",
	Long: `Checks values text for tab indentation, fields a YAML reader would
interpret differently, and strings that change type if written unquoted.
Exits non-zero when anything is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, firstArg(args))
		if err != nil {
			return err
		}

		findings := values.Lint(string(data))
		if len(findings) == 0 {
			ui.Success("No findings")
			return nil
		}
		for _, f := range findings {
			fmt.Fprintln(cmd.OutOrStdout(), f.String())
		}
		return fmt.Errorf("%d finding(s)", len(findings))
	},
}

func encodeOptions() []values.EncodeOption {
	if valuesQuote {
		return []values.EncodeOption{values.QuoteAmbiguous()}
	}
	return nil
}

func sessionOptions(cfg *config.Config, quote bool) edit.Options {
	return edit.Options{
		StateDir:        cfg.StateDir,
		AllowNoRegistry: valuesAllowNoRegistry,
		Strict:          valuesStrict,
		QuoteAmbiguous:  quote,
		Snapshots:       snapshot.New(cfg.StateDir),
	}
}

func reportResult(id string, res *edit.Result) {
	if !res.Changed {
		ui.Info("No changes to %s", id)
		return
	}
	if res.Snapshot != "" {
		ui.Debug("Previous values saved as %s", res.Snapshot)
	}
	if res.Release != nil {
		ui.Success("Updated values for %s (revision %d)", id, res.Release.Revision)
		return
	}
	ui.Success("Updated values for %s", id)
}

// warnFindings prints lint findings that affect what was sent.
// values.FindingUnstable only matters for re-encoding and is skipped.
func warnFindings(cmd *cobra.Command, findings []values.Finding) {
	var shown []values.Finding
	for _, f := range findings {
		if f.Kind != values.FindingUnstable {
			shown = append(shown, f)
		}
	}
	if len(shown) == 0 {
		return
	}
	ui.Warning("%d field(s) may not mean what they look like:", len(shown))
	for _, f := range shown {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", f)
	}
}

// runEditor writes text to a temp file, opens it in editor, and returns
// the saved contents.
func runEditor(editor, id, text string) (string, error) {
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return "", errors.New("no editor configured; set VISUAL or EDITOR")
	}

	f, err := os.CreateTemp("", tempPattern(id))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	c := exec.Command(parts[0], append(parts[1:], path)...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("run editor %s: %w", parts[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read edited file: %w", err)
	}
	return string(data), nil
}

// saveRejected keeps text that failed to submit so the edit is not lost.
func saveRejected(id, text string) (string, error) {
	f, err := os.CreateTemp("", tempPattern(id))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func tempPattern(id string) string {
	return "helmdeck-" + strings.ReplaceAll(id, "/", "-") + "-*.txt"
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	valuesGetCmd.Flags().StringVarP(&valuesOutput, "output", "o", "", "write to file instead of stdout")
	valuesGetCmd.Flags().BoolVar(&valuesQuote, "quote", false, "quote strings that would read back as another type")

	valuesSetCmd.Flags().StringVarP(&valuesInput, "file", "f", "", "text file to read (default stdin)")
	valuesSetCmd.Flags().BoolVar(&valuesStrict, "strict", false, "refuse text a YAML reader would interpret differently")
	valuesSetCmd.Flags().BoolVar(&valuesAllowNoRegistry, "allow-no-registry", false, "allow releases without a registry mapping")

	valuesEditCmd.Flags().StringVarP(&valuesInput, "file", "f", "", "submit this file instead of opening an editor")
	valuesEditCmd.Flags().BoolVar(&valuesEditQuote, "quote", true, "quote strings that would read back as another type")
	valuesEditCmd.Flags().BoolVar(&valuesStrict, "strict", false, "refuse text a YAML reader would interpret differently")
	valuesEditCmd.Flags().BoolVar(&valuesAllowNoRegistry, "allow-no-registry", false, "allow releases without a registry mapping")

	valuesEncodeCmd.Flags().StringVarP(&valuesOutput, "output", "o", "", "write to file instead of stdout")
	valuesEncodeCmd.Flags().BoolVar(&valuesQuote, "quote", false, "quote strings that would read back as another type")

	valuesDecodeCmd.Flags().StringVarP(&valuesOutput, "output", "o", "", "write to file instead of stdout")

	valuesCmd.AddCommand(valuesGetCmd)
	valuesCmd.AddCommand(valuesSetCmd)
	valuesCmd.AddCommand(valuesEditCmd)
	valuesCmd.AddCommand(valuesEncodeCmd)
	valuesCmd.AddCommand(valuesDecodeCmd)
	valuesCmd.AddCommand(valuesLintCmd)

	rootCmd.AddCommand(valuesCmd)
}
