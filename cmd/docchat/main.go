// Package main provides the docchat CLI for indexing documents into a
// session and querying them from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bull/docchat-server/internal/answer"
	"github.com/bull/docchat-server/internal/config"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/rag"
	"github.com/bull/docchat-server/internal/sessions"
)

// service is the part of rag.Service the commands use.
type service interface {
	Upload(ctx context.Context, userID, sessionID string, files []rag.File) string
	AskInSession(ctx context.Context, question, userID, sessionID string) string
	ChatHistory(ctx context.Context, userID, sessionID string) ([]history.Conversation, error)
	ClearSession(ctx context.Context, userID, sessionID string) string
	ClearUser(ctx context.Context, userID string) string
	CreateSession(ctx context.Context, userID, title string) (*sessions.Session, error)
	ListSessions(ctx context.Context, userID string) ([]sessions.Session, error)
	ExtractUserInfo(ctx context.Context, userID, sessionID string) string
	ExtractTechStack(ctx context.Context, userID, sessionID string) string
	GenerateQuestions(ctx context.Context, techStack, difficulty string) string
	Summarize(ctx context.Context, userID, sessionID string) string
}

type opener func(ctx context.Context, cfg *config.Config) (service, func(), error)

func openService(ctx context.Context, cfg *config.Config) (service, func(), error) {
	svc, cleanup, err := rag.Open(ctx, cfg, cfg.NewLogger())
	if err != nil {
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// errResult marks a failure that was already printed as an ERROR: result.
var errResult = errors.New("operation failed")

type app struct {
	open opener
	cfg  *config.Config

	userID    string
	sessionID string
}

func newRootCmd(open opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "docchat",
		Short:         "Chat with your documents",
		Long:          "CLI for uploading documents into a session and asking questions about them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.userID, "user", "u", os.Getenv("DOCCHAT_USER"), "user id (default $DOCCHAT_USER)")
	root.PersistentFlags().StringVarP(&a.sessionID, "session", "s", os.Getenv("DOCCHAT_SESSION"), "session id (default $DOCCHAT_SESSION)")

	root.AddCommand(
		newIngestCmd(a),
		newAskCmd(a),
		newHistoryCmd(a),
		newClearCmd(a),
		newSessionsCmd(a),
		newExtractCmd(a),
		newQuestionsCmd(a),
		newSummarizeCmd(a),
	)
	return root
}

// run wraps a command body: it opens the services, runs fn and releases
// them again.
func (a *app) run(fn func(cmd *cobra.Command, svc service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if a.cfg == nil {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg
		}
		svc, done, err := a.open(cmd.Context(), a.cfg)
		if err != nil {
			return err
		}
		defer done()
		return fn(cmd, svc, args)
	}
}

// printResult writes a service result and turns ERROR: results into errResult.
func printResult(cmd *cobra.Command, result string) error {
	fmt.Fprintln(cmd.OutOrStdout(), result)
	if answer.IsError(result) {
		return errResult
	}
	return nil
}

func (a *app) requireUser(*cobra.Command, []string) error {
	if a.userID == "" {
		return errors.New("--user is required")
	}
	return nil
}

func (a *app) requireSession(*cobra.Command, []string) error {
	if a.userID == "" || a.sessionID == "" {
		return errors.New("--user and --session are required")
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	root := newRootCmd(openService)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errResult) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
