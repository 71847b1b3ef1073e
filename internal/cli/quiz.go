package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quiz-engine/internal/app"
	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/postgres"
)

// NewQuizCmd groups stored quiz management.
func NewQuizCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Manage stored quizzes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <id> <file.json>",
		Short: "Validate a question list and store it under id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			slog.SetDefault(cfg.NewLogger())
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			quiz, err := readQuiz(args[0], args[1])
			if err != nil {
				return err
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := postgres.NewQuizLoader(pool).SaveQuiz(cmd.Context(), quiz); err != nil {
				return err
			}
			slog.InfoContext(cmd.Context(), "quiz: imported", "quiz", quiz.ID, "questions", len(quiz.Questions))
			return nil
		},
	})
	return cmd
}

// readQuiz accepts either a bare question array or a {"questions": [...]} object.
func readQuiz(id, path string) (domain.Quiz, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz := domain.Quiz{ID: id}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return domain.Quiz{}, fmt.Errorf("parse %s: %w", path, err)
		}
		quiz.ID = id
	}
	// the time limit and roster are per session; only the questions are checked here
	cfg := app.SessionConfig{Questions: quiz.Questions, TimeLimitSeconds: 1}
	if err := cfg.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	for i := range quiz.Questions {
		quiz.Questions[i].Index = i
	}
	return quiz, nil
}
