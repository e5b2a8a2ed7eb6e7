// Package importcmd implements the "import" subcommand stub: OFX import
// is out of scope, so this exists only to keep the documented subcommand
// surface complete with a clear error pointing at "load".
package importcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bufdev/capgains/cmd/capctl/internal/capctlcmd"
)

// NewCommand returns the "import" command.
func NewCommand(_ *capctlcmd.Globals) *cobra.Command {
	return &cobra.Command{
		Use:    "import <files...>",
		Short:  "Not supported; use \"load\" with plain CSV transaction logs",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("import: OFX import is not supported; use \"capctl load\" with plain CSV transaction logs")
		},
	}
}
