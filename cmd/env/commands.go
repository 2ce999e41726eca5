package env

import "github.com/spf13/cobra"

// Actions defines the environment lifecycle operations.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	Start(cmd *cobra.Command, args []string) error
	Stop(cmd *cobra.Command, args []string) error
	Restart(cmd *cobra.Command, args []string) error
	Destroy(cmd *cobra.Command, args []string) error
	Kill(cmd *cobra.Command, args []string) error
	Provision(cmd *cobra.Command, args []string) error
	SSH(cmd *cobra.Command, args []string) error
	Exec(cmd *cobra.Command, args []string) error
	Logs(cmd *cobra.Command, args []string) error
	Status(cmd *cobra.Command, args []string) error
	List(cmd *cobra.Command, args []string) error
}

// Commands builds the top-level environment commands. The instance
// argument is optional everywhere: it defaults to the project's default
// instance.
func Commands(h Actions) []*cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create [INSTANCE]",
		Short: "Create an environment and run provisioning",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Create,
	}
	createCmd.Flags().Bool("force", false, "destroy an existing environment first")

	startCmd := &cobra.Command{
		Use:   "start [INSTANCE]",
		Short: "Start an environment and its enabled services",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Start,
	}
	startCmd.Flags().Bool("refresh-config", false, "re-apply global configuration on start")

	stopCmd := &cobra.Command{
		Use:   "stop [INSTANCE]",
		Short: "Stop an environment and release its services",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Stop,
	}

	restartCmd := &cobra.Command{
		Use:   "restart [INSTANCE]",
		Short: "Restart an environment",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Restart,
	}
	restartCmd.Flags().Bool("refresh-config", false, "re-apply global configuration on restart")

	destroyCmd := &cobra.Command{
		Use:   "destroy [INSTANCE]",
		Short: "Destroy an environment and its persisted artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Destroy,
	}

	killCmd := &cobra.Command{
		Use:   "kill [INSTANCE]",
		Short: "Force-halt an environment, preserving it for later start",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Kill,
	}

	provisionCmd := &cobra.Command{
		Use:   "provision [INSTANCE]",
		Short: "Re-run the provisioning command",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Provision,
	}

	sshCmd := &cobra.Command{
		Use:   "ssh [INSTANCE]",
		Short: "Open a shell in the environment",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.SSH,
	}
	sshCmd.Flags().String("workdir", "", "initial working directory in the guest")

	execCmd := &cobra.Command{
		Use:   "exec [INSTANCE --] COMMAND...",
		Short: "Run a command in the environment workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Exec,
	}
	execCmd.Flags().String("instance", "", "target instance")

	logsCmd := &cobra.Command{
		Use:   "logs [INSTANCE]",
		Short: "Show environment logs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Logs,
	}
	logsCmd.Flags().BoolP("follow", "f", false, "follow log output")
	logsCmd.Flags().Int("tail", 0, "show only the last N lines")

	statusCmd := &cobra.Command{
		Use:   "status [INSTANCE]",
		Short: "Show environment and service status",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Status,
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List this project's environments",
		RunE:    h.List,
	}

	return []*cobra.Command{
		createCmd, startCmd, stopCmd, restartCmd, destroyCmd, killCmd,
		provisionCmd, sshCmd, execCmd, logsCmd, statusCmd, listCmd,
	}
}
