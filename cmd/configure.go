package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dhcgn/nwsl/config"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Edit the emailing config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.ReadRaw(configPath)
			if err != nil {
				return err
			}

			edited, err := editInEditor(raw)
			if err != nil {
				return err
			}

			if edited == "" || edited == raw {
				pterm.Info.Println("Left the config file as it was")
				return nil
			}

			if err := config.Save(configPath, []byte(edited)); err != nil {
				return err
			}

			pterm.Success.Printfln("Config file saved to %s", configPath)
			return nil
		},
	}
}

// editInEditor hands initial to the user's $EDITOR via a temp file and
// returns whatever they saved.
func editInEditor(initial string) (string, error) {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	tmp, err := os.CreateTemp("", "nwsl-config-*.json")
	if err != nil {
		return "", fmt.Errorf("stage editable config: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(initial); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("stage editable config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("stage editable config: %w", err)
	}

	run := exec.Command(editor, tmpPath)
	run.Stdin = os.Stdin
	run.Stdout = os.Stdout
	run.Stderr = os.Stderr
	if err := run.Run(); err != nil {
		return "", fmt.Errorf("run editor %s: %w", filepath.Base(editor), err)
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("read edited config: %w", err)
	}
	return string(edited), nil
}
