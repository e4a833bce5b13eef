package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/agentflow/internal/budget"
	"github.com/fyrsmithlabs/agentflow/internal/session"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Human-readable session and pool overview",
	Long: `Render a styled overview of the current session (goal, workflow,
agent sequence, failures, checkpoints) and every pool's budget. For
machine-readable output use 'aflow state' and 'aflow budget all'.`,
	RunE: runStatus,
}

// Lipgloss styles for the status view.
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	critStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)
)

func runStatus(cmd *cobra.Command, args []string) error {
	sessions, logger, err := initSessions()
	if err != nil {
		return err
	}
	defer logger.Sync()

	mgr, err := initBudget()
	if err != nil {
		return err
	}

	var content strings.Builder
	content.WriteString(headerStyle.Render(" agentflow "))
	content.WriteString("\n")

	sess, err := sessions.Store().Current()
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		content.WriteString(dimStyle.Render("No active session. Start one with 'aflow init <goal>'."))
		content.WriteString("\n")
	case err != nil:
		return err
	default:
		renderSession(&content, sess)
	}

	budgets, err := mgr.BudgetAll(context.Background())
	if err != nil {
		return err
	}
	renderPools(&content, budgets)

	fmt.Fprintln(cmd.OutOrStdout(), containerStyle.Render(content.String()))
	return nil
}

func renderSession(w *strings.Builder, sess *session.Session) {
	w.WriteString(sectionStyle.Render("┃ Session"))
	w.WriteString("\n")
	w.WriteString(labelStyle.Render("  ID: ") + valueStyle.Render(sess.ID) + "\n")
	w.WriteString(labelStyle.Render("  Goal: ") + valueStyle.Render(sess.Goal) + "\n")
	w.WriteString(labelStyle.Render("  Status: ") + statusBadge(sess.Status) +
		"  " + dimStyle.Render(string(sess.Mode)) + "\n")

	if sess.Routing != nil {
		w.WriteString(labelStyle.Render("  Workflow: ") +
			valueStyle.Render(string(sess.Routing.Workflow)) +
			" " + dimStyle.Render(fmt.Sprintf("(confidence %.2f)", sess.Routing.Confidence)) + "\n")

		w.WriteString(labelStyle.Render("  Sequence: "))
		for i, entry := range sess.Routing.AgentSequence {
			if i > 0 {
				w.WriteString(dimStyle.Render(" → "))
			}
			w.WriteString(agentBadge(entry))
		}
		w.WriteString("\n")
	}

	if len(sess.Failures) > 0 {
		w.WriteString(labelStyle.Render("  Failures: ") +
			critStyle.Render(fmt.Sprintf("%d", len(sess.Failures))) + "\n")
	}
	if len(sess.Checkpoints) > 0 {
		last := sess.Checkpoints[len(sess.Checkpoints)-1]
		w.WriteString(labelStyle.Render("  Checkpoints: ") +
			valueStyle.Render(fmt.Sprintf("%d", len(sess.Checkpoints))) +
			"  " + dimStyle.Render("latest: "+last.Name) + "\n")
	}
}

func renderPools(w *strings.Builder, budgets []*budget.PoolBudget) {
	w.WriteString(sectionStyle.Render("┃ Pools"))
	w.WriteString("\n")
	for _, b := range budgets {
		pct := 0.0
		if b.SoftLimit > 0 {
			pct = float64(b.Used) / float64(b.SoftLimit) * 100
		}
		w.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s", b.Pool)) +
			valueStyle.Render(fmt.Sprintf("%6d", b.Used)) +
			dimStyle.Render(fmt.Sprintf(" / %d tokens (%.0f%%) ", b.SoftLimit, pct)) +
			poolBadge(b.Status) + "\n")
	}
}

func statusBadge(s session.Status) string {
	switch s {
	case session.StatusCompleted:
		return okStyle.Render("✓ " + string(s))
	case session.StatusRecovering, session.StatusAborted:
		return critStyle.Render("✗ " + string(s))
	case session.StatusPaused:
		return warnStyle.Render("⚠ " + string(s))
	default:
		return valueStyle.Render(string(s))
	}
}

func agentBadge(entry session.SequenceEntry) string {
	switch entry.Status {
	case session.AgentCompleted:
		return okStyle.Render(entry.Agent + " ✓")
	case session.AgentActive:
		return warnStyle.Render(entry.Agent + " …")
	default:
		return dimStyle.Render(entry.Agent)
	}
}

func poolBadge(s budget.PoolStatus) string {
	switch s {
	case budget.StatusCritical:
		return critStyle.Render("[✗ CRITICAL]")
	case budget.StatusWarning:
		return warnStyle.Render("[⚠ WARNING]")
	default:
		return okStyle.Render("[✓ OK]")
	}
}
