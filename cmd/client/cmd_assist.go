package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gurkanbulca/barakaflow/internal/models"
)

var (
	chatConversation string
	chatTask         string
	chatDate         string
	chatClear        bool
)

// dayCmd shows one day's agenda
var dayCmd = &cobra.Command{
	Use:   "day [date]",
	Short: "Show the agenda of a day (default: today)",
	Long: `Show the tasks that occur on a date (YYYY-MM-DD), including repeating
tasks, split into to-do and completed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDay,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <taskId>",
	Short: "Ask the assistant for tips on a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [date]",
	Short: "Ask the assistant to plan a day (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runOptimize,
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Chat with the assistant about a task or a day",
	Long: `Send one message to the assistant.

Pass --task to talk about a task, or --date for a day (default: today).
Reuse --conversation to continue an earlier exchange; a new id is printed
when none is given.`,
	Args: cobra.ArbitraryArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Conversation id to continue")
	chatCmd.Flags().StringVarP(&chatTask, "task", "t", "", "Task id to discuss")
	chatCmd.Flags().StringVarP(&chatDate, "date", "d", "", "Date to discuss (YYYY-MM-DD)")
	chatCmd.Flags().BoolVar(&chatClear, "clear", false, "Clear the conversation instead of sending a message")
	chatCmd.MarkFlagsMutuallyExclusive("task", "date")
}

func runDay(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	view, err := c.Day(ctx, firstArg(args))
	if err != nil {
		return dropStaleToken(store, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Agenda for %s\n\n", view.Date)
	printSection(out, "To do", view.Todo)
	fmt.Fprintln(out)
	printSection(out, "Completed", view.Completed)
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	res, err := c.Suggest(ctx, args[0])
	if err != nil {
		return dropStaleToken(store, err)
	}

	out := cmd.OutOrStdout()
	printList(out, "Tips", res.Tips)
	printList(out, "Suggestions", res.Suggestions)
	if res.Approach != "" {
		fmt.Fprintf(out, "Approach\n  %s\n", res.Approach)
	}
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	res, err := c.OptimizeDay(ctx, firstArg(args))
	if err != nil {
		return dropStaleToken(store, err)
	}

	out := cmd.OutOrStdout()
	if res.Summary != "" {
		fmt.Fprintf(out, "%s\n\n", res.Summary)
	}
	printList(out, "Steps", res.ActionableSteps)
	printList(out, "Breaks", res.BreakSuggestions)
	printList(out, "Energy", res.EnergyManagement)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()

	if chatClear {
		if chatConversation == "" {
			return fmt.Errorf("--clear needs --conversation")
		}
		if err := c.ClearChat(ctx, chatConversation); err != nil {
			return dropStaleToken(store, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared")
		return nil
	}

	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return fmt.Errorf("message is required")
	}
	conv := chatConversation
	if conv == "" {
		conv = uuid.NewString()
	}

	res, err := c.Chat(ctx, conv, chatTask, chatDate, message)
	if err != nil {
		return dropStaleToken(store, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Reply)
	if chatConversation == "" {
		fmt.Fprintf(out, "\n(continue with --conversation %s)\n", res.ConversationID)
	}
	return nil
}

func printSection(out io.Writer, title string, tasks []*models.Task) {
	fmt.Fprintf(out, "%s (%d)\n", title, len(tasks))
	for _, t := range tasks {
		when := "any time"
		if t.StartTime != nil {
			when = t.StartTime.Local().Format("15:04")
			if t.EndTime != nil {
				when += "-" + t.EndTime.Local().Format("15:04")
			}
		}
		fmt.Fprintf(out, "  %-11s %s  [%s]\n", when, t.Title, t.ID)
	}
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(out, title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
	fmt.Fprintln(out)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
