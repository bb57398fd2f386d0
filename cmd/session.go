package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloom/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect tutoring sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")
		switch store.SessionStatus(status) {
		case "", store.SessionActive, store.SessionCompleted, store.SessionAbandoned:
		default:
			return fmt.Errorf("invalid status %q: must be active, completed or abandoned", status)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		rows, err := s.SessionRepo().List(cmd.Context(), store.SessionStatus(status), limit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(w, "No sessions found.")
			return nil
		}

		fmt.Fprintf(w, "%-5s  %-19s  %-10s  %-28s  %s\n", "ID", "Updated", "Status", "Subtopic", "Correct")
		fmt.Fprintln(w, strings.Repeat("─", 80))
		for _, sess := range rows {
			fmt.Fprintf(w, "%-5d  %-19s  %-10s  %-28s  %d/%d\n",
				sess.ID,
				sess.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
				sess.Status,
				truncate(sess.SubtopicName, 28),
				sess.QuestionsCorrect,
				sess.QuestionsAttempted,
			)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		sess, err := s.SessionRepo().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("session %d: %w", id, err)
		}
		msgs, err := s.MessageRepo().List(ctx, id)
		if err != nil {
			return err
		}
		calcs, err := s.CalculatorRepo().List(ctx, id)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		sep := strings.Repeat("─", 60)
		fmt.Fprintf(w, "Session:   %d\n", sess.ID)
		fmt.Fprintf(w, "Subtopic:  %s (%d)\n", sess.SubtopicName, sess.SubtopicID)
		fmt.Fprintf(w, "Status:    %s\n", sess.Status)
		fmt.Fprintf(w, "Correct:   %d/%d\n", sess.QuestionsCorrect, sess.QuestionsAttempted)
		fmt.Fprintf(w, "Started:   %s\n", sess.CreatedAt.Local().Format("2006-01-02 15:04:05"))

		fmt.Fprintln(w)
		fmt.Fprintln(w, sep)
		for _, m := range msgs {
			fmt.Fprintf(w, "[%s] %s\n%s\n\n", m.Timestamp.Local().Format("15:04:05"), m.Role, m.Content)
		}
		if len(calcs) > 0 {
			fmt.Fprintln(w, sep)
			fmt.Fprintln(w, "CALCULATOR")
			for _, c := range calcs {
				fmt.Fprintf(w, "  %s = %s\n", c.Expression, c.Result)
			}
		}
		return nil
	},
}

var sessionAbandonCmd = &cobra.Command{
	Use:   "abandon [id]",
	Short: "Abandon one session, or every active session when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		w := cmd.OutOrStdout()
		if len(args) == 0 {
			n, err := s.SessionRepo().AbandonAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Abandoned %d active sessions.\n", n)
			return nil
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}
		sess, err := s.SessionRepo().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("session %d: %w", id, err)
		}
		if sess.Status != store.SessionActive {
			return fmt.Errorf("session %d is already %s", id, sess.Status)
		}
		if err := s.SessionRepo().SetStatus(ctx, id, store.SessionAbandoned); err != nil {
			return err
		}
		fmt.Fprintf(w, "Abandoned session %d.\n", id)
		return nil
	},
}

func init() {
	sessionListCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	sessionListCmd.Flags().StringP("status", "s", "", "Filter by status (active, completed, abandoned)")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionAbandonCmd)
}
