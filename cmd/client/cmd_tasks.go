package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gurkanbulca/barakaflow/internal/agenda"
	"github.com/gurkanbulca/barakaflow/internal/models"
	"github.com/gurkanbulca/barakaflow/pkg/client"
)

var (
	listQuery    string
	listFilter   string
	listWatch    bool
	listInterval time.Duration

	addDesc     string
	addOwner    string
	addStart    string
	addEnd      string
	addRepeat   string
	addInterval int
	addUntil    string
)

// tasksCmd groups task commands
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and manage tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, newest first",
	Long: `List your tasks, optionally narrowed by a search query and a filter.

Filters: all, completed, pending, not-started, today.
With --watch the list is refreshed until interrupted; a refresh that is
overtaken by a newer one is dropped.`,
	Args: cobra.NoArgs,
	RunE: runTasksList,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Long: `Create a task.

Times accept RFC3339, "2006-01-02 15:04" or "2006-01-02" (local time).
The owner must be you or an invited member (see 'barakaflow members').`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTasksAdd,
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <taskId>",
	Short: "Mark a task completed",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksDone,
}

var tasksRmCmd = &cobra.Command{
	Use:     "rm <taskId>",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTasksRm,
}

func init() {
	tasksListCmd.Flags().StringVarP(&listQuery, "q", "q", "", "Search title and description")
	tasksListCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "Filter: all, completed, pending, not-started, today")
	tasksListCmd.Flags().BoolVarP(&listWatch, "watch", "w", false, "Keep refreshing the list")
	tasksListCmd.Flags().DurationVar(&listInterval, "interval", 5*time.Second, "Refresh interval for --watch")

	tasksAddCmd.Flags().StringVarP(&addDesc, "desc", "d", "", "Description")
	tasksAddCmd.Flags().StringVarP(&addOwner, "owner", "o", "", "Owner (default: you)")
	tasksAddCmd.Flags().StringVar(&addStart, "start", "", "Start time")
	tasksAddCmd.Flags().StringVar(&addEnd, "end", "", "End time")
	tasksAddCmd.Flags().StringVar(&addRepeat, "repeat", "", "Repeat: daily, weekly, monthly, yearly")
	tasksAddCmd.Flags().IntVar(&addInterval, "every", 0, "Repeat every N periods")
	tasksAddCmd.Flags().StringVar(&addUntil, "until", "", "Last date the task repeats")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksRmCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}
	filter, err := agenda.ParseFilter(listFilter)
	if err != nil {
		return err
	}

	fetch := func(ctx context.Context) ([]*models.Task, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return c.ListTasks(ctx, listQuery, string(filter))
	}

	if !listWatch {
		tasks, err := fetch(commandContext(cmd))
		if err != nil {
			return dropStaleToken(store, err)
		}
		printTasks(cmd.OutOrStdout(), tasks)
		return nil
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchTasks(ctx, cmd.OutOrStdout(), listInterval, fetch)
}

// watchTasks refreshes on every tick. Each refresh supersedes the previous
// one, so a slow response never overwrites a newer list.
func watchTasks(ctx context.Context, out io.Writer, interval time.Duration, fetch func(context.Context) ([]*models.Task, error)) error {
	var latest client.Latest
	defer latest.Cancel()

	type result struct {
		tasks []*models.Task
		err   error
	}
	results := make(chan result, 1)
	refresh := func() {
		go func() {
			tasks, err := client.Run(ctx, &latest, fetch)
			if errors.Is(err, client.ErrSuperseded) {
				return
			}
			select {
			case results <- result{tasks, err}:
			case <-ctx.Done():
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	refresh()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		case res := <-results:
			if res.err != nil {
				if errors.Is(res.err, context.Canceled) {
					continue
				}
				if client.IsUnauthenticated(res.err) {
					return res.err
				}
				logger.Warn("refresh failed", zap.Error(res.err))
				fmt.Fprintln(out, friendlyError(res.err))
				continue
			}
			fmt.Fprintf(out, "\n%s\n", time.Now().Format("15:04:05"))
			printTasks(out, res.tasks)
		}
	}
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	store, s, c, err := signedIn()
	if err != nil {
		return err
	}

	in := models.TaskInput{
		Title:       strings.Join(args, " "),
		Description: addDesc,
	}
	in.Owner, err = resolveOwner(s, addOwner)
	if err != nil {
		return err
	}
	if in.StartTime, err = parseTimeFlag("start", addStart); err != nil {
		return err
	}
	if in.EndTime, err = parseTimeFlag("end", addEnd); err != nil {
		return err
	}
	if addRepeat != "" {
		freq, err := models.ParseFrequency(addRepeat)
		if err != nil {
			return err
		}
		in.Recurrence = &models.Recurrence{Frequency: freq, Interval: addInterval}
		if in.Recurrence.EndDate, err = parseTimeFlag("until", addUntil); err != nil {
			return err
		}
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	task, err := c.CreateTask(ctx, in)
	if err != nil {
		return dropStaleToken(store, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", task.Title, task.ID)
	return nil
}

func runTasksDone(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	task, err := c.UpdateTask(ctx, args[0], models.TaskPatch{Completed: models.Some(true)})
	if err != nil {
		return dropStaleToken(store, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Completed %s\n", task.Title)
	return nil
}

func runTasksRm(cmd *cobra.Command, args []string) error {
	store, _, c, err := signedIn()
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(cmd)
	defer cancel()
	if err := c.DeleteTask(ctx, args[0]); err != nil {
		return dropStaleToken(store, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Task deleted")
	return nil
}

// resolveOwner defaults to the signed-in user and rejects names that are
// neither the user nor an invited member.
func resolveOwner(s *client.Session, owner string) (string, error) {
	owners := s.Owners()
	owner = strings.TrimSpace(owner)
	if owner == "" {
		if len(owners) > 0 {
			return owners[0], nil
		}
		return "", nil
	}
	idx := slices.IndexFunc(owners, func(o string) bool { return strings.EqualFold(o, owner) })
	if idx < 0 {
		return "", fmt.Errorf("unknown owner %q; invite them with 'barakaflow members add'", owner)
	}
	return owners[idx], nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q: use RFC3339, \"2006-01-02 15:04\" or \"2006-01-02\"", name, value)
}

func printTasks(out io.Writer, tasks []*models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tOWNER\tSTART\tREPEAT")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Owner, formatTime(t.StartTime), repeatLabel(t.Recurrence))
	}
	w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func repeatLabel(r *models.Recurrence) string {
	if r == nil || !r.Repeats() {
		return "-"
	}
	if r.Interval > 1 {
		return fmt.Sprintf("every %d %s", r.Interval, r.Frequency)
	}
	return string(r.Frequency)
}
