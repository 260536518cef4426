package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	ghclient "github.com/bull/docchat-server/internal/github"
	"github.com/bull/docchat-server/internal/rag"
)

func newIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add documents to a session",
	}

	files := &cobra.Command{
		Use:   "files PATH...",
		Short: "Upload local text or markdown files",
		Long: `Uploads files into the session's document namespace.

Markdown files (.md, .markdown) are split by heading before the size based
split; everything else is split by size only. Uploading a file again
overwrites the chunks stored under the same positions.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: a.requireSession,
		RunE: a.run(func(cmd *cobra.Command, svc service, args []string) error {
			uploads, err := readFiles(args)
			if err != nil {
				return err
			}
			return printResult(cmd, svc.Upload(cmd.Context(), a.userID, a.sessionID, uploads))
		}),
	}

	github := &cobra.Command{
		Use:   "github OWNER/REPO[/PATH][@REF]",
		Short: "Import .md and .txt documents from a GitHub repository",
		Long: `Fetches every .md, .markdown and .txt file below PATH and uploads them
into the session.

Environment variables:
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireSession,
		RunE: a.run(func(cmd *cobra.Command, svc service, args []string) error {
			src, err := ghclient.ParseSource(args[0])
			if err != nil {
				return err
			}
			client, err := ghclient.NewClient(a.cfg.GitHubToken)
			if err != nil {
				return fmt.Errorf("failed to create GitHub client: %w", err)
			}
			fetcher := ghclient.NewFetcher(client, src, a.cfg.NewLogger())

			start := time.Now()
			fmt.Fprintf(cmd.ErrOrStderr(), "Fetching documents from %s...\n", src)
			docs, err := fetcher.FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			if sha, err := fetcher.GetLatestCommitSHA(cmd.Context()); err == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Commit: %s\n", sha)
			}

			uploads := make([]rag.File, 0, len(docs))
			for _, d := range docs {
				uploads = append(uploads, rag.File{
					Name: strings.ReplaceAll(d.Path, "/", "__"),
					Data: []byte(d.Content),
				})
			}
			err = printResult(cmd, svc.Upload(cmd.Context(), a.userID, a.sessionID, uploads))
			fmt.Fprintf(cmd.ErrOrStderr(), "Total time: %s\n", time.Since(start).Round(time.Millisecond))
			return err
		}),
	}

	cmd.AddCommand(files, github)
	return cmd
}

func readFiles(paths []string) ([]rag.File, error) {
	files := make([]rag.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, rag.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ask QUESTION...",
		Short:   "Ask a question about the session's documents",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: a.requireSession,
		RunE: a.run(func(cmd *cobra.Command, svc service, args []string) error {
			question := strings.Join(args, " ")
			return printResult(cmd, svc.AskInSession(cmd.Context(), question, a.userID, a.sessionID))
		}),
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Show the chat history of a session, or of all sessions without --session",
		Args:    cobra.NoArgs,
		PreRunE: a.requireUser,
		RunE: a.run(func(cmd *cobra.Command, svc service, _ []string) error {
			convs, err := svc.ChatHistory(cmd.Context(), a.userID, a.sessionID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(convs)
			}
			if len(convs) == 0 {
				fmt.Fprintln(out, "No chat history.")
				return nil
			}
			for _, c := range convs {
				fmt.Fprintf(out, "[%s] (%s)\nQ: %s\nA: %s\n\n", c.Timestamp, c.SessionID, c.Question, c.Answer)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a session's documents, uploads and chat history",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return a.requireUser(cmd, args)
			}
			return a.requireSession(cmd, args)
		},
		RunE: a.run(func(cmd *cobra.Command, svc service, _ []string) error {
			if all {
				return printResult(cmd, svc.ClearUser(cmd.Context(), a.userID))
			}
			return printResult(cmd, svc.ClearSession(cmd.Context(), a.userID, a.sessionID))
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "clear every session of the user")
	return cmd
}

func newSessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage sessions",
	}

	list := &cobra.Command{
		Use:     "list",
		Short:   "List sessions, most recently used first",
		Args:    cobra.NoArgs,
		PreRunE: a.requireUser,
		RunE: a.run(func(cmd *cobra.Command, svc service, _ []string) error {
			list, err := svc.ListSessions(cmd.Context(), a.userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range list {
				fmt.Fprintf(out, "%s\t%s\t%d documents\t%s\n", s.ID, s.Title, s.DocumentCount, s.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		}),
	}

	var name string
	create := &cobra.Command{
		Use:     "create",
		Short:   "Create a session and print its id",
		Args:    cobra.NoArgs,
		PreRunE: a.requireUser,
		RunE: a.run(func(cmd *cobra.Command, svc service, _ []string) error {
			sess, err := svc.CreateSession(cmd.Context(), a.userID, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&name, "name", "", "session name")

	cmd.AddCommand(list, create)
	return cmd
}

func newExtractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract structured information from the session's documents",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "user-info",
			Short:   "Extract personal and professional details",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: a.run(func(cmd *cobra.Command, svc service, _ []string) error {
				return printResult(cmd, svc.ExtractUserInfo(cmd.Context(), a.userID, a.sessionID))
			}),
		},
		&cobra.Command{
			Use:     "tech-stack",
			Short:   "Extract a comma separated list of technologies",
			Args:    cobra.NoArgs,
			PreRunE: a.requireSession,
			RunE: a.run(func(cmd *cobra.Command, svc service, _ []string) error {
				return printResult(cmd, svc.ExtractTechStack(cmd.Context(), a.userID, a.sessionID))
			}),
		},
	)
	return cmd
}

func newQuestionsCmd(a *app) *cobra.Command {
	var difficulty string
	cmd := &cobra.Command{
		Use:   "questions TECH_STACK",
		Short: "Generate interview questions for a tech stack",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, svc service, args []string) error {
			return printResult(cmd, svc.GenerateQuestions(cmd.Context(), args[0], difficulty))
		}),
	}
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "medium", "easy, medium or hard")
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "summarize",
		Short:   "Summarize the session's documents",
		Args:    cobra.NoArgs,
		PreRunE: a.requireSession,
		RunE: a.run(func(cmd *cobra.Command, svc service, _ []string) error {
			return printResult(cmd, svc.Summarize(cmd.Context(), a.userID, a.sessionID))
		}),
	}
}
