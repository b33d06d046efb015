package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var friendCmd = &cobra.Command{
	Use:   "friend <username>",
	Short: "Send a friend request",
	Long: `Send a friend request.

<username> is either a plain username or name#1234 for accounts that
still have a discriminator.`,
	Args: cobra.ExactArgs(1),
	RunE: runFriend,
}

var friendsCmd = &cobra.Command{
	Use:   "friends",
	Short: "List your friends",
	Args:  cobra.NoArgs,
	RunE:  runFriends,
}

func init() {
	rootCmd.AddCommand(friendCmd)
	rootCmd.AddCommand(friendsCmd)
}

func runFriend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.restore(ctx); err != nil {
		return present(err)
	}
	if err := a.d.AddFriend(ctx, args[0]); err != nil {
		return present(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Friend request sent to %s\n", args[0])
	return nil
}

func runFriends(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.restore(ctx); err != nil {
		return present(err)
	}
	friends, err := a.d.Friends(ctx)
	if err != nil {
		return present(err)
	}

	out := cmd.OutOrStdout()
	if len(friends) == 0 {
		fmt.Fprintln(out, "No friends yet.")
		return nil
	}
	for _, f := range friends {
		fmt.Fprintln(out, f.Tag())
	}
	return nil
}
