package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/alert-relay/internal/service/device"
)

var (
	// profileCmd groups the profile subcommands.
	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Select, show or reset the device profile.",
	}

	profileSenderCmd = &cobra.Command{
		Use:   "sender",
		Short: "Use the sender profile; alerts are raised under the configured sender name.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return selectProfile(cmd, device.RoleSender, "")
		},
	}

	profileReceiverCmd = &cobra.Command{
		Use:   "receiver <name>",
		Short: "Use a receiver profile with the given display name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return selectProfile(cmd, device.RoleReceiver, args[0])
		},
	}

	profileShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the stored profile.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := device.ShowProfile(cmd.Context(), options(cmd))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)

			return err
		},
	}

	profileResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored profile so another one can be selected.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := device.ResetProfile(cmd.Context(), options(cmd)); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Profile reset. Restart alert-device after selecting a new one.")

			return err
		},
	}

	// historyCmd prints recent resolutions.
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Print the most recent alert resolutions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return device.PrintHistory(cmd.Context(), options(cmd))
		},
	}

	// silentCmd toggles silent mode.
	silentCmd = &cobra.Command{
		Use:       "silent on|off",
		Short:     "Keep incoming alerts quiet on this device, or restore the full alarm.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := device.SetSilentMode(cmd.Context(), options(cmd), args[0] == "on"); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Silent mode %s.\n", args[0])

			return err
		},
	}
)

func selectProfile(cmd *cobra.Command, role, name string) error {
	p, err := device.SelectProfile(cmd.Context(), options(cmd), role, name)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Profile selected: %s\n", p)

	return err
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	profileCmd.AddCommand(profileSenderCmd, profileReceiverCmd, profileShowCmd, profileResetCmd)
}
