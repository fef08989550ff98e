package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// printResult writes result as indented JSON when --json is set and otherwise
// hands stdout to text for the human-readable form.
func (c *commandContext) printResult(cmd *cobra.Command, result any, text func(out io.Writer) error) error {
	out := cmd.OutOrStdout()
	if !c.jsonOutput() {
		return text(out)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %T: %w", result, err)
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
