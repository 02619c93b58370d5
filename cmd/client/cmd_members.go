package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gurkanbulca/barakaflow/pkg/auth"
	"github.com/gurkanbulca/barakaflow/pkg/client"
)

var memberName string

// membersCmd manages the people tasks can be assigned to
var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Manage invited members",
	Long: `Invited members are kept in the local session and offered as task
owners. They do not get access to your tasks.`,
}

var membersAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Invite a member",
	Args:  cobra.ExactArgs(1),
	RunE:  runMembersAdd,
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List possible task owners",
	Args:  cobra.NoArgs,
	RunE:  runMembersList,
}

func init() {
	membersAddCmd.Flags().StringVarP(&memberName, "name", "n", "", "Display name")

	membersCmd.AddCommand(membersAddCmd)
	membersCmd.AddCommand(membersListCmd)
}

func runMembersAdd(cmd *cobra.Command, args []string) error {
	emailAddr := auth.NormalizeEmail(args[0])
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return err
	}

	store := client.NewFileStore(sessionPath, logger)
	s := store.Load()
	if !s.AddMember(client.Member{Name: memberName, Email: emailAddr}) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already a member\n", emailAddr)
		return nil
	}
	if err := store.Save(s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Invited %s\n", emailAddr)
	return nil
}

func runMembersList(cmd *cobra.Command, args []string) error {
	s := client.NewFileStore(sessionPath, logger).Load()
	owners := s.Owners()
	if len(owners) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No members; sign in or run 'barakaflow members add'")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(owners, "\n"))
	return nil
}
