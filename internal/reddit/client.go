package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blackmichael/swapbot/internal/domain"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultLimit    = 25

	// moreChildrenBatch is the most ids /api/morechildren accepts per call.
	moreChildrenBatch = 100
)

// Config describes a Reddit script application and the subreddit it
// moderates.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserAgent    string

	// Subreddit is the moderated subreddit, without the "r/" prefix.
	Subreddit string

	// Limit is the number of submissions fetched per listing. Defaults to 25.
	Limit int

	// BaseURL and TokenURL override the Reddit endpoints.
	BaseURL  string
	TokenURL string
}

// Client is a minimal Reddit API client implementing domain.Platform.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ domain.Platform = (*Client)(nil)

// NewClient creates a client that authenticates with the configured refresh
// token. Access tokens are refreshed automatically.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}

	// Reddit rejects requests, token refreshes included, that lack a
	// descriptive User-Agent.
	base := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &userAgentTransport{agent: cfg.UserAgent, next: http.DefaultTransport},
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 30 * time.Second

	return &Client{cfg: cfg, httpClient: httpClient}
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}

// NewSubmissions returns the subreddit's newest submissions.
func (c *Client) NewSubmissions(ctx context.Context) ([]domain.Submission, error) {
	q := url.Values{"limit": {strconv.Itoa(c.cfg.Limit)}, "raw_json": {"1"}}

	var resp listing
	if err := c.get(ctx, "/r/"+c.cfg.Subreddit+"/new", q, &resp); err != nil {
		return nil, fmt.Errorf("get new: %w", err)
	}

	subs := make([]domain.Submission, 0, len(resp.Data.Children))
	for _, t := range resp.Data.Children {
		if t.Kind != kindLink {
			continue
		}
		var l link
		if err := json.Unmarshal(t.Data, &l); err != nil {
			return nil, fmt.Errorf("unmarshal submission: %w", err)
		}
		subs = append(subs, l.toDomain())
	}
	return subs, nil
}

// CommentTree returns a submission's comments expanded to depth levels.
// Comments collapsed behind "load more" placeholders are fetched as well.
func (c *Client) CommentTree(ctx context.Context, submissionID string, depth int) ([]*domain.Comment, error) {
	q := url.Values{
		"depth":    {strconv.Itoa(depth)},
		"limit":    {"500"},
		"raw_json": {"1"},
	}

	// The response is a pair of listings: the submission, then its comments.
	var resp []listing
	if err := c.get(ctx, "/comments/"+submissionID, q, &resp); err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	if len(resp) < 2 {
		return nil, fmt.Errorf("get comments: unexpected response with %d listings", len(resp))
	}

	f := newForest()
	if err := f.addListing(nil, resp[1].Data.Children); err != nil {
		return nil, err
	}

	requested := make(map[string]struct{})
	for {
		batch := f.next(moreChildrenBatch, requested)
		if len(batch) == 0 {
			break
		}
		things, err := c.moreChildren(ctx, submissionID, depth, batch)
		if err != nil {
			return nil, err
		}
		if err := f.addFlat(things); err != nil {
			return nil, err
		}
	}
	return f.roots, nil
}

func (c *Client) moreChildren(ctx context.Context, submissionID string, depth int, ids []string) ([]thing, error) {
	q := url.Values{
		"api_type":       {"json"},
		"link_id":        {prefixLink + submissionID},
		"children":       {strings.Join(ids, ",")},
		"depth":          {strconv.Itoa(depth)},
		"limit_children": {"false"},
		"raw_json":       {"1"},
	}

	var env apiEnvelope
	if err := c.get(ctx, "/api/morechildren", q, &env); err != nil {
		return nil, fmt.Errorf("get more children: %w", err)
	}
	var data struct {
		Things []thing `json:"things"`
	}
	if err := env.decode(&data); err != nil {
		return nil, fmt.Errorf("get more children: %w", err)
	}
	return data.Things, nil
}

// User fetches a user's profile.
func (c *Client) User(ctx context.Context, name string) (*domain.UserProfile, error) {
	var resp struct {
		Data account `json:"data"`
	}
	if err := c.get(ctx, "/user/"+url.PathEscape(name)+"/about", nil, &resp); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &domain.UserProfile{
		Name:         resp.Data.Name,
		CreatedAt:    unixTime(resp.Data.CreatedUTC),
		LinkKarma:    resp.Data.LinkKarma,
		CommentKarma: resp.Data.CommentKarma,
	}, nil
}

// Moderators lists the subreddit's moderators.
func (c *Client) Moderators(ctx context.Context) ([]domain.Moderator, error) {
	var resp struct {
		Data struct {
			Children []struct {
				Name            string  `json:"name"`
				AuthorFlairText *string `json:"author_flair_text"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/r/"+c.cfg.Subreddit+"/about/moderators", nil, &resp); err != nil {
		return nil, fmt.Errorf("get moderators: %w", err)
	}

	mods := make([]domain.Moderator, 0, len(resp.Data.Children))
	for _, m := range resp.Data.Children {
		mod := domain.Moderator{Name: m.Name}
		if m.AuthorFlairText != nil {
			mod.FlairText = *m.AuthorFlairText
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// ReplyToSubmission comments on a submission.
func (c *Client) ReplyToSubmission(ctx context.Context, submissionID, text string) (string, error) {
	return c.comment(ctx, prefixLink+submissionID, text)
}

// ReplyToComment replies to a comment.
func (c *Client) ReplyToComment(ctx context.Context, commentID, text string) (string, error) {
	return c.comment(ctx, prefixComment+commentID, text)
}

func (c *Client) comment(ctx context.Context, parent, text string) (string, error) {
	form := url.Values{"thing_id": {parent}, "text": {text}}

	var data struct {
		Things []struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"things"`
	}
	if err := c.post(ctx, "/api/comment", form, &data); err != nil {
		return "", fmt.Errorf("comment on %s: %w", parent, err)
	}
	if len(data.Things) == 0 {
		return "", fmt.Errorf("comment on %s: no comment returned", parent)
	}
	return data.Things[0].Data.ID, nil
}

// DistinguishComment distinguishes a comment as a moderator and optionally
// stickies it.
func (c *Client) DistinguishComment(ctx context.Context, commentID string, sticky bool) error {
	form := url.Values{
		"id":     {prefixComment + commentID},
		"how":    {"yes"},
		"sticky": {strconv.FormatBool(sticky)},
	}
	if err := c.post(ctx, "/api/distinguish", form, nil); err != nil {
		return fmt.Errorf("distinguish %s: %w", commentID, err)
	}
	return nil
}

// RemoveSubmission removes a submission from public view.
func (c *Client) RemoveSubmission(ctx context.Context, submissionID string) error {
	form := url.Values{"id": {prefixLink + submissionID}, "spam": {"false"}}
	if err := c.post(ctx, "/api/remove", form, nil); err != nil {
		return fmt.Errorf("remove %s: %w", submissionID, err)
	}
	return nil
}

// ApproveSubmission approves a submission.
func (c *Client) ApproveSubmission(ctx context.Context, submissionID string) error {
	form := url.Values{"id": {prefixLink + submissionID}}
	if err := c.post(ctx, "/api/approve", form, nil); err != nil {
		return fmt.Errorf("approve %s: %w", submissionID, err)
	}
	return nil
}

// StickySubmission pins a submission to the top of the subreddit.
func (c *Client) StickySubmission(ctx context.Context, submissionID string) error {
	form := url.Values{"id": {prefixLink + submissionID}, "state": {"true"}}
	if err := c.post(ctx, "/api/set_subreddit_sticky", form, nil); err != nil {
		return fmt.Errorf("sticky %s: %w", submissionID, err)
	}
	return nil
}

// SetSubmissionTag applies a link flair template to a submission.
func (c *Client) SetSubmissionTag(ctx context.Context, submissionID, tagID string) error {
	form := url.Values{"link": {prefixLink + submissionID}, "flair_template_id": {tagID}}
	if err := c.post(ctx, "/r/"+c.cfg.Subreddit+"/api/selectflair", form, nil); err != nil {
		return fmt.Errorf("select flair on %s: %w", submissionID, err)
	}
	return nil
}

// SubmitSelfPost creates a text submission in the subreddit.
func (c *Client) SubmitSelfPost(ctx context.Context, title, text string) (string, error) {
	form := url.Values{
		"sr":    {c.cfg.Subreddit},
		"kind":  {"self"},
		"title": {title},
		"text":  {text},
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/submit", form, &data); err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	if data.ID == "" {
		return "", fmt.Errorf("submit: no submission id returned")
	}
	return data.ID, nil
}

// SetUserFlair assigns a user's flair in the subreddit.
func (c *Client) SetUserFlair(ctx context.Context, user string, flair domain.Flair) error {
	form := url.Values{"name": {user}, "text": {flair.Text}, "css_class": {flair.Class}}
	if err := c.post(ctx, "/r/"+c.cfg.Subreddit+"/api/flair", form, nil); err != nil {
		return fmt.Errorf("set flair for %s: %w", user, err)
	}
	return nil
}

// SendMessage sends a private message.
func (c *Client) SendMessage(ctx context.Context, to, subject, text string) error {
	form := url.Values{"to": {to}, "subject": {subject}, "text": {text}}
	if err := c.post(ctx, "/api/compose", form, nil); err != nil {
		return fmt.Errorf("compose to %s: %w", to, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// post sends a form request with api_type=json and decodes the "json.data"
// envelope into result when result is non-nil.
func (c *Client) post(ctx context.Context, path string, form url.Values, result any) error {
	form.Set("api_type", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return env.decode(result)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func unixTime(sec float64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}
