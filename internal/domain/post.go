package domain

import "time"

// Kind is the transaction type derived from a submission title.
type Kind string

const (
	KindInvalid Kind = "invalid"
	KindBuy     Kind = "buy"
	KindSell    Kind = "sell"
	KindTrade   Kind = "trade"
)

// Label returns the word used when telling an author how their post was
// tagged.
func (k Kind) Label() string {
	switch k {
	case KindBuy:
		return "Buying"
	case KindSell:
		return "Selling"
	case KindTrade:
		return "Trading"
	default:
		return "Unknown"
	}
}

// Submission is a forum submission as reported by the platform.
type Submission struct {
	// ID is the platform's short identifier (without a type prefix).
	ID string

	Title string
	Body  string

	// Author is the submitting user's name.
	Author string

	// Permalink is the site-relative link to the submission.
	Permalink string

	// Approved reports whether a moderator has manually approved the
	// submission. Approved submissions are never removed by the bot.
	Approved bool

	CreatedAt time.Time
}

// UserProfile is the subset of a platform user the moderation rules need.
type UserProfile struct {
	Name         string
	CreatedAt    time.Time
	LinkKarma    int
	CommentKarma int
}

// Karma returns the user's combined link and comment karma.
func (u *UserProfile) Karma() int {
	return u.LinkKarma + u.CommentKarma
}

// PostInfo is the classification of a single submission. It is built fresh
// for every evaluation and never persisted.
type PostInfo struct {
	Kind Kind

	// Have and Want are the clauses following the [H] and [W] markers. Both
	// are empty when Kind is KindInvalid.
	Have string
	Want string

	// Errors are policy violations. Any error rejects the submission.
	Errors []string

	// Warnings are advisory and are passed on to the author.
	Warnings []string

	WantsElectronicPayment bool

	// AccountAge is the author's humanized account age.
	AccountAge string
}

// TrackedPost is a submission the bot has already handled.
type TrackedPost struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Permalink string    `json:"permalink"`
	Timestamp time.Time `json:"timestamp"`
}
