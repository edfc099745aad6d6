package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	clamd "github.com/clammyhq/clamd-client-go"
	"github.com/spf13/cobra"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "scan PATH [PATH...]",
		Short: "Scan files or directories the daemon can read directly",
		Long: `Scan files or directories by path. The paths must be readable by the
daemon itself, so they are resolved on the machine clamd runs on.

Exit codes: 0 when everything is clean, 1 when a threat was found,
2 when the scan could not be completed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseScanMode(modeFlag)
			if err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			merged := &clamd.ScanOutcome{}
			for _, path := range args {
				outcome, err := client.ScanPath(cmd.Context(), path, mode)
				if err != nil {
					return &exitError{code: exitErrorCode, err: err}
				}
				merged.Verdicts = append(merged.Verdicts, outcome.Verdicts...)
			}

			return reportOutcome(cmd.OutOrStdout(), ctx, merged)
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "continue",
		"Scan command: normal (stop at first hit), continue, or multi (threaded)")
	return cmd
}

func newInstreamCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "instream [FILE]",
		Short: "Upload a file or stdin for scanning over INSTREAM",
		Long: `Upload local content to the daemon for scanning. Unlike "scan", the
daemon never touches the filesystem, so this works against remote or
chrooted daemons. Reads stdin when FILE is omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return &exitError{code: exitErrorCode, err: err}
				}
				defer f.Close()
				src = f
			}

			outcome, err := client.ScanStream(cmd.Context(), src)
			if err != nil {
				return &exitError{code: exitErrorCode, err: err}
			}
			return reportOutcome(cmd.OutOrStdout(), ctx, outcome)
		},
	}
}

func parseScanMode(mode string) (clamd.ScanMode, error) {
	switch mode {
	case "normal":
		return clamd.ScanModeNormal, nil
	case "continue":
		return clamd.ScanModeContinue, nil
	case "multi":
		return clamd.ScanModeMulti, nil
	default:
		return 0, fmt.Errorf("unknown scan mode %q (normal, continue, multi)", mode)
	}
}

// reportOutcome prints the verdicts and translates the aggregate into the
// process exit code.
func reportOutcome(out io.Writer, ctx *commandContext, outcome *clamd.ScanOutcome) error {
	if ctx.jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomeDocument(outcome)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, renderVerdicts(outcome, prettyOutput()))
	}

	switch {
	case outcome.AnyFound():
		return &exitError{code: exitFound}
	case outcome.AnyError():
		return &exitError{code: exitErrorCode}
	default:
		return nil
	}
}
