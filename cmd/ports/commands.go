package ports

import "github.com/spf13/cobra"

// Actions defines the port registry operations.
type Actions interface {
	List(cmd *cobra.Command, args []string) error
	Release(cmd *cobra.Command, args []string) error
}

// Command builds the "ports" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	portsCmd := &cobra.Command{
		Use:   "ports",
		Short: "Inspect the host-wide port registry",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List port allocations by project",
		RunE:    h.List,
	}

	releaseCmd := &cobra.Command{
		Use:   "release PROJECT",
		Short: "Release a project's port allocation",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Release,
	}

	portsCmd.AddCommand(listCmd, releaseCmd)
	return portsCmd
}
