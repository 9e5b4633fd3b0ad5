package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/wesm/github-feedback/config"
	"github.com/wesm/github-feedback/internal/api"
	"github.com/wesm/github-feedback/internal/db"
	"github.com/wesm/github-feedback/internal/models"
	"github.com/wesm/github-feedback/internal/sync"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	createConfig := flag.Bool("init", false, "Create a default configuration file if it doesn't exist")
	check := flag.Bool("check", false, "Check that the token can reach the feedback repository")
	listOpen := flag.Bool("list-open", false, "List open feedback")
	listClosed := flag.Bool("list-closed", false, "List closed feedback")
	listMine := flag.Bool("mine", false, "List feedback submitted from this device")
	title := flag.String("title", "", "Title for -submit or -edit")
	description := flag.String("description", "", "Description for -submit or -edit")
	kind := flag.String("type", "bug", "Feedback type for -submit or -edit: bug or feature")
	contact := flag.String("contact", "", "Optional contact email for -submit or -edit")
	submit := flag.Bool("submit", false, "Submit new feedback using -title, -description and -type")
	edit := flag.Int("edit", 0, "Edit feedback number using -title, -description and -type")
	upvote := flag.Int("upvote", 0, "Upvote feedback number")
	closeIssue := flag.Int("close", 0, "Close feedback number")
	reopenIssue := flag.Int("reopen", 0, "Reopen feedback number")
	comments := flag.Int("comments", 0, "Show comments on feedback number")
	commentOn := flag.Int("comment", 0, "Comment on feedback number with -body")
	commentBody := flag.String("body", "", "Comment text for -comment")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *createConfig {
		if err := config.CreateDefaultConfig(*configPath); err != nil {
			fatal(logger, "failed to create default configuration", err)
		}
		logger.Info("created default configuration", "path", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fatal(logger, "failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid configuration", err)
	}

	owner, name, err := sync.ParseRepositoryString(cfg.Repository)
	if err != nil {
		fatal(logger, "invalid configuration", err)
	}

	ctx := context.Background()

	if *check {
		status, err := api.NewGraphQLClient(owner, name, cfg.GitHubToken).RepositoryStatus(ctx)
		if err != nil {
			fatal(logger, "repository check failed", err)
		}
		fmt.Printf("Authenticated as %s\n", status.Viewer)
		fmt.Printf("Repository:      %s (issues enabled: %t, %d open)\n",
			status.FullName, status.HasIssuesEnabled, status.OpenIssues)
		fmt.Printf("Rate limit:      %d remaining, resets %s\n",
			status.RateLimitRemaining, status.RateLimitResetAt.Format(time.RFC3339))
		return
	}

	store, err := db.New(cfg.DatabasePath, logger)
	if err != nil {
		fatal(logger, "failed to open local store", err)
	}
	defer store.Close()

	client := api.NewGitHubClient(owner, name, cfg.GitHubToken)
	syncer := sync.New(client, store, store, logger)

	feedbackType := models.FeedbackBug
	if *kind == "feature" || *kind == models.LabelFeatureRequest {
		feedbackType = models.FeedbackFeatureRequest
	}
	submission := sync.Submission{
		Title:        *title,
		Description:  *description,
		Type:         feedbackType,
		DeviceInfo:   deviceInfo(store),
		ContactEmail: *contact,
	}

	switch {
	case *submit:
		if *title == "" {
			fatal(logger, "missing title", fmt.Errorf("-submit requires -title"))
		}
		issue, err := syncer.SubmitFeedback(ctx, submission)
		if err != nil {
			fatal(logger, "failed to submit feedback", err)
		}
		fmt.Printf("Submitted #%d\n", issue.Number)
	case *edit != 0:
		if err := syncer.EditFeedback(ctx, *edit, submission); err != nil {
			fatal(logger, "failed to edit feedback", err)
		}
		fmt.Printf("Updated #%d\n", *edit)
	case *upvote != 0:
		if err := syncer.Upvote(ctx, *upvote); err != nil {
			fatal(logger, "failed to upvote", err)
		}
		fmt.Printf("Voted for #%d\n", *upvote)
	case *closeIssue != 0:
		if err := syncer.CloseFeedback(ctx, *closeIssue); err != nil {
			fatal(logger, "failed to close feedback", err)
		}
		fmt.Printf("Closed #%d\n", *closeIssue)
	case *reopenIssue != 0:
		if err := syncer.ReopenFeedback(ctx, *reopenIssue); err != nil {
			fatal(logger, "failed to reopen feedback", err)
		}
		fmt.Printf("Reopened #%d\n", *reopenIssue)
	case *comments != 0:
		list, err := syncer.LoadComments(ctx, *comments)
		if err != nil {
			fatal(logger, "failed to load comments", err)
		}
		for _, c := range list {
			author := "unknown"
			if c.User != nil {
				author = c.User.Login
			}
			fmt.Printf("%s  %s\n%s\n\n", c.CreatedAt.Format(time.DateTime), author, c.Body)
		}
	case *commentOn != 0:
		if _, err := syncer.AddComment(ctx, *commentOn, *commentBody); err != nil {
			fatal(logger, "failed to add comment", err)
		}
		fmt.Printf("Commented on #%d\n", *commentOn)
	case *listOpen:
		if err := syncer.LoadOpenIssues(ctx); err != nil {
			fatal(logger, "failed to load open feedback", err)
		}
		printIssues(syncer, syncer.State(sync.ListOpen).Issues)
	case *listClosed:
		if err := syncer.LoadClosedIssues(ctx); err != nil {
			fatal(logger, "failed to load closed feedback", err)
		}
		printIssues(syncer, syncer.State(sync.ListClosed).Issues)
	case *listMine:
		if err := syncer.RefreshAll(ctx); err != nil {
			logger.Warn("some feedback could not be loaded", "error", err)
		}
		printIssues(syncer, syncer.OwnedIssues())
	default:
		fmt.Println("Feedback board for GitHub issues")
		fmt.Println("--------------------------------")
		fmt.Println("Use -list-open, -list-closed or -mine to browse feedback")
		fmt.Println("Use -submit -title T -description D [-type bug|feature] [-contact EMAIL] to submit")
		fmt.Println("Use -upvote N, -edit N, -close N or -reopen N to act on feedback")
		fmt.Println("Use -comments N or -comment N -body TEXT for discussion")
		fmt.Println("Use -check to verify the token and repository")
		fmt.Println("Use -init to create a default configuration file")
		fmt.Println()
		fmt.Printf("GitHub token can be provided via the %s environment variable\n", config.EnvGithubToken)
	}
}

func printIssues(syncer *sync.Syncer, issues []models.Issue) {
	for _, issue := range issues {
		kind := "other"
		switch {
		case issue.IsBug():
			kind = "bug"
		case issue.IsFeatureRequest():
			kind = "feature"
		}

		flags := ""
		if syncer.HasVoted(issue.Number) {
			flags += " [voted]"
		}
		if syncer.OwnsIssue(issue.Number) {
			flags += " [mine]"
		}
		if issue.WasEdited() {
			flags += " (edited)"
		}
		if closed := issue.ClosedOn(); closed != "" {
			flags += " closed " + closed
		}
		if next := issue.NextLabel(); next != nil {
			flags += " <" + next.Name + ">"
		}

		fmt.Printf("#%-5d %-8s 👍 %-4d %s%s\n", issue.Number, kind, issue.VoteCount, issue.Title, flags)
		if body := issue.DisplayableBody(); body != "" {
			fmt.Printf("       %s\n", body)
		}
	}
}

func deviceInfo(store *db.DB) string {
	info := fmt.Sprintf("Platform: %s/%s\nRuntime: %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
	if id, err := store.InstallationID(); err == nil {
		info += "\nInstallation: " + id
	}
	return info
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
