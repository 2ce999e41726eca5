package temp

import "github.com/spf13/cobra"

// Actions defines the ephemeral environment operations.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	SSH(cmd *cobra.Command, args []string) error
	Status(cmd *cobra.Command, args []string) error
	Destroy(cmd *cobra.Command, args []string) error
	Mount(cmd *cobra.Command, args []string) error
	Unmount(cmd *cobra.Command, args []string) error
	Mounts(cmd *cobra.Command, args []string) error
}

// Command builds the "temp" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	tempCmd := &cobra.Command{
		Use:   "temp",
		Short: "Manage the ephemeral environment",
	}

	createCmd := &cobra.Command{
		Use:   "create [DIR...]",
		Short: "Create the temp environment, mounting the given directories",
		RunE:  h.Create,
	}

	sshCmd := &cobra.Command{
		Use:   "ssh",
		Short: "Open a shell in the temp environment",
		Args:  cobra.NoArgs,
		RunE:  h.SSH,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show temp environment status",
		Args:  cobra.NoArgs,
		RunE:  h.Status,
	}

	destroyCmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy the temp environment",
		Args:  cobra.NoArgs,
		RunE:  h.Destroy,
	}

	mountCmd := &cobra.Command{
		Use:   "mount DIR[:TARGET][:ro|rw]",
		Short: "Add a mount to the running temp environment",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Mount,
	}

	unmountCmd := &cobra.Command{
		Use:   "unmount [DIR]",
		Short: "Remove a mount (--all removes every mount)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Unmount,
	}
	unmountCmd.Flags().Bool("all", false, "remove all mounts")

	mountsCmd := &cobra.Command{
		Use:   "mounts",
		Short: "List the temp environment's mounts",
		Args:  cobra.NoArgs,
		RunE:  h.Mounts,
	}

	tempCmd.AddCommand(createCmd, sshCmd, statusCmd, destroyCmd, mountCmd, unmountCmd, mountsCmd)
	return tempCmd
}
