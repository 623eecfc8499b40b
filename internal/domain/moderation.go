package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of handling one submission.
type Outcome int

const (
	// OutcomeSkipped means the submission was already handled or was the
	// bot's own.
	OutcomeSkipped Outcome = iota
	OutcomeRejected
	OutcomeAccepted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeAccepted:
		return "accepted"
	default:
		return "skipped"
	}
}

const emtBanner = "**Please note: OP has mentioned that they are interested in using EMT. Note that EMT transactions are NOT reversable in the event of a dispute or scam. Be extra careful if using EMT!**"

// ModerationConfig holds the settings of a ModerationService.
type ModerationConfig struct {
	// Forum is the forum's display name used in messages.
	Forum string

	// BotName is the bot's own account; its submissions are ignored.
	BotName string

	// HistoryURL is the dashboard base URL linked from the info reply. The
	// link is omitted when empty.
	HistoryURL string

	Policy Policy
}

// ModerationService evaluates new submissions and either tags and records
// them or removes them with an explanation.
type ModerationService struct {
	cfg        ModerationConfig
	rules      *Rules
	platform   Platform
	posts      PostRepository
	reputation ReputationReader
	flair      FlairRefresher
	logger     *slog.Logger
	now        func() time.Time
}

// NewModerationService creates a ModerationService.
func NewModerationService(
	cfg ModerationConfig,
	platform Platform,
	posts PostRepository,
	reputation ReputationReader,
	flair FlairRefresher,
	logger *slog.Logger,
) (*ModerationService, error) {
	rules, err := NewRules(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	return &ModerationService{
		cfg:        cfg,
		rules:      rules,
		platform:   platform,
		posts:      posts,
		reputation: reputation,
		flair:      flair,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// ProcessNewPosts handles every submission in the forum's newest listing.
// Submissions are handled concurrently; one submission failing does not
// affect the others. Only a failure to list submissions is returned.
func (s *ModerationService) ProcessNewPosts(ctx context.Context) error {
	subs, err := s.platform.NewSubmissions(ctx)
	if err != nil {
		return fmt.Errorf("list new submissions: %w", err)
	}

	var (
		mu     sync.Mutex
		failed int
		counts = make(map[Outcome]int)
	)
	var g errgroup.Group
	for _, sub := range subs {
		g.Go(func() error {
			outcome, err := s.ProcessSubmission(ctx, sub)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.Error("failed to process submission", "id", sub.ID, "error", err)
				return nil
			}
			counts[outcome]++
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("done processing new posts",
		"total", len(subs),
		"accepted", counts[OutcomeAccepted],
		"rejected", counts[OutcomeRejected],
		"skipped", counts[OutcomeSkipped],
		"failed", failed,
	)
	return nil
}

// ProcessSubmission runs the moderation pipeline for one submission.
func (s *ModerationService) ProcessSubmission(ctx context.Context, sub Submission) (Outcome, error) {
	if strings.EqualFold(sub.Author, s.cfg.BotName) {
		return OutcomeSkipped, nil
	}

	seen, err := s.posts.PostExists(ctx, sub.ID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("check post %s: %w", sub.ID, err)
	}
	if seen {
		return OutcomeSkipped, nil
	}

	s.logger.Debug("processing submission", "id", sub.ID, "title", sub.Title)

	user, err := s.platform.User(ctx, sub.Author)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("fetch author %s: %w", sub.Author, err)
	}
	rep, err := s.reputation.Reputation(ctx, user.Name)
	if err != nil {
		return OutcomeSkipped, err
	}

	info := s.Evaluate(sub, user, rep)

	if len(info.Errors) > 0 && !sub.Approved {
		return OutcomeRejected, s.reject(ctx, sub, info)
	}
	return OutcomeAccepted, s.accept(ctx, sub, user, rep, info)
}

// Evaluate classifies sub and collects every policy violation and warning.
// It performs no I/O.
func (s *ModerationService) Evaluate(sub Submission, user *UserProfile, reputation int) PostInfo {
	info := s.rules.ParseTitle(sub.Title)
	s.rules.ValidateBody(sub.Body, &info)
	ValidateAuthor(s.now().Sub(user.CreatedAt), s.cfg.Policy.MinAccountAge, &info)
	s.rules.ValidateElectronicPayment(sub.Title, sub.Body, reputation, s.cfg.Policy.EMTRepRequired, &info)
	return info
}

func (s *ModerationService) reject(ctx context.Context, sub Submission, info PostInfo) error {
	s.logger.Info("removing submission", "id", sub.ID, "author", sub.Author, "errors", len(info.Errors))

	if _, err := s.platform.ReplyToSubmission(ctx, sub.ID, removalText(info.Errors)); err != nil {
		s.logger.Error("failed to reply to removed submission", "id", sub.ID, "error", err)
	}
	if err := s.platform.RemoveSubmission(ctx, sub.ID); err != nil {
		return fmt.Errorf("remove submission %s: %w", sub.ID, err)
	}
	return nil
}

func (s *ModerationService) accept(ctx context.Context, sub Submission, user *UserProfile, rep int, info PostInfo) error {
	s.logger.Info("accepting submission", "id", sub.ID, "author", user.Name, "kind", info.Kind, "approved", sub.Approved)

	if tag := s.cfg.Policy.Tags.ForKind(info.Kind); tag != "" {
		if err := s.platform.SetSubmissionTag(ctx, sub.ID, tag); err != nil {
			s.logger.Error("failed setting post tag", "id", sub.ID, "tag", tag, "error", err)
		}
	}

	commentID, err := s.platform.ReplyToSubmission(ctx, sub.ID, s.infoText(user, rep, info))
	if err != nil {
		s.logger.Error("failed to post info reply", "id", sub.ID, "error", err)
	} else if err := s.platform.DistinguishComment(ctx, commentID, true); err != nil {
		s.logger.Error("failed to pin info reply", "id", sub.ID, "comment", commentID, "error", err)
	}

	subject := fmt.Sprintf("Thank you for posting to /r/%s!", s.cfg.Forum)
	if err := s.platform.SendMessage(ctx, user.Name, subject, s.thanksText(info)); err != nil {
		s.logger.Warn("failed to message user, they probably have messages turned off", "user", user.Name, "error", err)
	}

	post := &TrackedPost{
		ID:        sub.ID,
		User:      user.Name,
		Title:     sub.Title,
		Body:      sub.Body,
		Permalink: sub.Permalink,
		Timestamp: s.now().UTC(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return fmt.Errorf("record post %s: %w", sub.ID, err)
	}

	if err := s.flair.Refresh(ctx, user.Name); err != nil {
		s.logger.Error("failed to update author flair", "user", user.Name, "error", err)
	}
	return nil
}

// IgnoreNewPosts records every submission in the newest listing as handled
// without moderating it. It returns the number of submissions recorded.
func (s *ModerationService) IgnoreNewPosts(ctx context.Context) (int, error) {
	subs, err := s.platform.NewSubmissions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list new submissions: %w", err)
	}
	for _, sub := range subs {
		s.logger.Debug("ignoring submission", "id", sub.ID, "title", sub.Title)
		post := &TrackedPost{
			ID:        sub.ID,
			User:      sub.Author,
			Title:     sub.Title,
			Body:      sub.Body,
			Permalink: sub.Permalink,
			Timestamp: s.now().UTC(),
		}
		if err := s.posts.CreatePost(ctx, post); err != nil {
			return 0, fmt.Errorf("record post %s: %w", sub.ID, err)
		}
	}
	return len(subs), nil
}

func removalText(errs []string) string {
	return "Hello!\n\nI've removed your post due to the following errors.\n\n* " +
		strings.Join(errs, "\n\n* ") +
		"\n\n Please read the subreddit rules and try again. I'm just a bot, and I'm sorry if I got it wrong - if I did, please message the mods to let them know. Have a nice day!"
}

func (s *ModerationService) infoText(user *UserProfile, rep int, info PostInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Username: %s (", user.Name)
	if s.cfg.HistoryURL != "" {
		fmt.Fprintf(&b, "[History](%s/user/%s), ", strings.TrimRight(s.cfg.HistoryURL, "/"), user.Name)
	}
	fmt.Fprintf(&b, "[USL](https://universalscammerlist.com/search.php?username=%s))", user.Name)
	fmt.Fprintf(&b, "\n\nConfirmed Trades: **%d**", rep)
	fmt.Fprintf(&b, "\n\nAccount Age: **%s**", info.AccountAge)
	fmt.Fprintf(&b, "\n\nKarma: **%s**", humanize.Comma(int64(user.Karma())))
	if info.WantsElectronicPayment {
		b.WriteString("\n\n" + emtBanner)
	}
	return b.String()
}

func (s *ModerationService) thanksText(info PostInfo) string {
	text := fmt.Sprintf("Thank you for posting to /r/%s. Based on your thread title I've automatically set your post's flair to **%s**. If this is incorrect, please update your post's flair.",
		s.cfg.Forum, info.Kind.Label())
	if len(info.Warnings) > 0 {
		text += "\n\nPlease note:\n\n* " + strings.Join(info.Warnings, "\n\n* ")
	}
	return text
}
