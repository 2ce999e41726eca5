package service

import "github.com/spf13/cobra"

// Actions defines the shared-service operations.
type Actions interface {
	List(cmd *cobra.Command, args []string) error
	Start(cmd *cobra.Command, args []string) error
	Stop(cmd *cobra.Command, args []string) error
	Status(cmd *cobra.Command, args []string) error
}

// Command builds the "service" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage shared services",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List services with state and consumers",
		RunE:    h.List,
	}

	startCmd := &cobra.Command{
		Use:   "start SERVICE",
		Short: "Start a service without registering a consumer",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Start,
	}

	stopCmd := &cobra.Command{
		Use:   "stop SERVICE",
		Short: "Stop a service regardless of consumers",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Stop,
	}

	statusCmd := &cobra.Command{
		Use:   "status SERVICE",
		Short: "Probe a service's health",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Status,
	}

	serviceCmd.AddCommand(listCmd, startCmd, stopCmd, statusCmd)
	return serviceCmd
}
