package domain

import "context"

// ModeratorSource lists the forum's moderators.
type ModeratorSource interface {
	Moderators(ctx context.Context) ([]Moderator, error)
}

// FlairAssigner sets a user's display flair.
type FlairAssigner interface {
	SetUserFlair(ctx context.Context, user string, flair Flair) error
}

// Platform is the social platform capability the bot drives. Submission and
// comment identifiers are the platform's short ids without type prefixes.
type Platform interface {
	ModeratorSource
	FlairAssigner

	// NewSubmissions returns the forum's newest submissions, newest first.
	NewSubmissions(ctx context.Context) ([]Submission, error)

	// CommentTree returns the top-level comments of a submission with replies
	// expanded to depth levels, in platform order.
	CommentTree(ctx context.Context, submissionID string, depth int) ([]*Comment, error)

	// User fetches a user's profile.
	User(ctx context.Context, name string) (*UserProfile, error)

	// ReplyToSubmission and ReplyToComment post a reply and return the new
	// comment's id.
	ReplyToSubmission(ctx context.Context, submissionID, text string) (string, error)
	ReplyToComment(ctx context.Context, commentID, text string) (string, error)

	// DistinguishComment marks a bot comment as a moderator comment and
	// optionally pins it to the top of the thread.
	DistinguishComment(ctx context.Context, commentID string, sticky bool) error

	RemoveSubmission(ctx context.Context, submissionID string) error
	ApproveSubmission(ctx context.Context, submissionID string) error
	StickySubmission(ctx context.Context, submissionID string) error

	// SetSubmissionTag applies a content tag template to a submission.
	SetSubmissionTag(ctx context.Context, submissionID, tagID string) error

	// SubmitSelfPost creates a text submission and returns its id.
	SubmitSelfPost(ctx context.Context, title, text string) (string, error)

	// SendMessage sends a private message.
	SendMessage(ctx context.Context, to, subject, text string) error
}

// PostRepository persists the submissions the bot has handled.
type PostRepository interface {
	// PostExists reports whether a submission id has been recorded.
	PostExists(ctx context.Context, id string) (bool, error)

	// CreatePost records a submission. Recording a known id is a no-op.
	CreatePost(ctx context.Context, post *TrackedPost) error

	// PostsByUser returns a user's recorded submissions, newest first.
	PostsByUser(ctx context.Context, user string) ([]TrackedPost, error)
}

// VouchRepository persists confirmed trades.
type VouchRepository interface {
	// InsertVouch stores v unless a vouch with the same permalink exists.
	// It reports whether a row was written.
	InsertVouch(ctx context.Context, v *Vouch) (bool, error)

	// CountVouches returns the number of vouches naming user on either side.
	CountVouches(ctx context.Context, user string) (int, error)

	// VouchesByUser returns the vouches naming user, newest first.
	VouchesByUser(ctx context.Context, user string) ([]Vouch, error)

	// ListVouches returns every vouch, newest first.
	ListVouches(ctx context.Context) ([]Vouch, error)
}

// StateRepository is a small key/value store for bot state such as the
// current trade thread id.
type StateRepository interface {
	// GetState returns the value for key, or "" if it has never been set.
	GetState(ctx context.Context, key string) (string, error)

	// SetState upserts the value for key.
	SetState(ctx context.Context, key, value string) error
}

// ReputationReader returns a user's confirmed-trade count.
type ReputationReader interface {
	Reputation(ctx context.Context, user string) (int, error)
}

// FlairRefresher recomputes a user's flair.
type FlairRefresher interface {
	Refresh(ctx context.Context, user string) error
}

// VouchListener is notified after a new vouch is stored.
type VouchListener interface {
	VouchRecorded(v Vouch)
}
