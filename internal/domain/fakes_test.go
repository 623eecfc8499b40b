package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testPolicy() Policy {
	return Policy{
		Vocabulary: Vocabulary{
			Payment:           []string{"cash", "money", "paypal", "emt", "emf", "bitcoin", "interac", "etransfer", "e-transfer"},
			ElectronicPayment: []string{"emt", "emf", "bitcoin", "interac", "etransfer", "e-transfer"},
			ImageHosts:        []string{"imgur.com", "i.redd.it", "ibb.co"},
			Price:             []string{"$", "cad", "usd", "pay"},
			OffsiteListings:   []string{"kijiji.ca", "craigslist.ca", "kijiji.com", "craigslist.com"},
		},
		Tags: TagIDs{
			Buy:         "tag-buy",
			Sell:        "tag-sell",
			Trade:       "tag-trade",
			TradeThread: "tag-thread",
		},
		MinAccountAge:  28 * day,
		EMTRepRequired: 5,
	}
}

func testRules() *Rules {
	r, err := NewRules(testPolicy())
	if err != nil {
		panic(err)
	}
	return r
}

var errPlatformDown = errors.New("platform unavailable")

type sentMessage struct {
	To, Subject, Text string
}

type reply struct {
	ParentID, Text string
}

// fakePlatform records every call. Failing operations are named in fail.
type fakePlatform struct {
	mu sync.Mutex

	submissions []Submission
	comments    map[string][]*Comment
	users       map[string]*UserProfile
	moderators  []Moderator
	fail        map[string]bool

	nextID         int
	replies        []reply
	distinguished  []string
	removed        []string
	approved       []string
	stickied       []string
	tags           map[string]string
	submitted      []string
	messages       []sentMessage
	flairs         map[string]Flair
	moderatorCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		comments: map[string][]*Comment{},
		users:    map[string]*UserProfile{},
		fail:     map[string]bool{},
		tags:     map[string]string{},
		flairs:   map[string]Flair{},
	}
}

func (p *fakePlatform) failing(op string) error {
	if p.fail[op] {
		return fmt.Errorf("%s: %w", op, errPlatformDown)
	}
	return nil
}

func (p *fakePlatform) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s%d", prefix, p.nextID)
}

func (p *fakePlatform) Moderators(context.Context) ([]Moderator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moderatorCalls++
	if err := p.failing("Moderators"); err != nil {
		return nil, err
	}
	return slices.Clone(p.moderators), nil
}

func (p *fakePlatform) SetUserFlair(_ context.Context, user string, flair Flair) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("SetUserFlair"); err != nil {
		return err
	}
	p.flairs[user] = flair
	return nil
}

func (p *fakePlatform) NewSubmissions(context.Context) ([]Submission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("NewSubmissions"); err != nil {
		return nil, err
	}
	return slices.Clone(p.submissions), nil
}

func (p *fakePlatform) CommentTree(_ context.Context, id string, _ int) ([]*Comment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("CommentTree"); err != nil {
		return nil, err
	}
	return p.comments[id], nil
}

func (p *fakePlatform) User(_ context.Context, name string) (*UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("User"); err != nil {
		return nil, err
	}
	u, ok := p.users[name]
	if !ok {
		return nil, fmt.Errorf("user %s not found", name)
	}
	return u, nil
}

func (p *fakePlatform) ReplyToSubmission(_ context.Context, id, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("ReplyToSubmission"); err != nil {
		return "", err
	}
	p.replies = append(p.replies, reply{ParentID: id, Text: text})
	return p.id("c"), nil
}

func (p *fakePlatform) ReplyToComment(_ context.Context, id, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("ReplyToComment"); err != nil {
		return "", err
	}
	p.replies = append(p.replies, reply{ParentID: id, Text: text})
	return p.id("c"), nil
}

func (p *fakePlatform) DistinguishComment(_ context.Context, id string, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("DistinguishComment"); err != nil {
		return err
	}
	p.distinguished = append(p.distinguished, id)
	return nil
}

func (p *fakePlatform) RemoveSubmission(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("RemoveSubmission"); err != nil {
		return err
	}
	p.removed = append(p.removed, id)
	return nil
}

func (p *fakePlatform) ApproveSubmission(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("ApproveSubmission"); err != nil {
		return err
	}
	p.approved = append(p.approved, id)
	return nil
}

func (p *fakePlatform) StickySubmission(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("StickySubmission"); err != nil {
		return err
	}
	p.stickied = append(p.stickied, id)
	return nil
}

func (p *fakePlatform) SetSubmissionTag(_ context.Context, id, tag string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("SetSubmissionTag"); err != nil {
		return err
	}
	p.tags[id] = tag
	return nil
}

func (p *fakePlatform) SubmitSelfPost(_ context.Context, title, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("SubmitSelfPost"); err != nil {
		return "", err
	}
	p.submitted = append(p.submitted, title)
	return p.id("t"), nil
}

func (p *fakePlatform) SendMessage(_ context.Context, to, subject, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failing("SendMessage"); err != nil {
		return err
	}
	p.messages = append(p.messages, sentMessage{To: to, Subject: subject, Text: text})
	return nil
}

// memStore is an in-memory PostRepository, VouchRepository and
// StateRepository.
type memStore struct {
	mu      sync.Mutex
	posts   []TrackedPost
	vouches []Vouch
	state   map[string]string
	fail    map[string]bool
}

func newMemStore() *memStore {
	return &memStore{state: map[string]string{}, fail: map[string]bool{}}
}

func (m *memStore) failing(op string) error {
	if m.fail[op] {
		return fmt.Errorf("%s: database is locked", op)
	}
	return nil
}

func (m *memStore) PostExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("PostExists"); err != nil {
		return false, err
	}
	return slices.ContainsFunc(m.posts, func(p TrackedPost) bool { return p.ID == id }), nil
}

func (m *memStore) CreatePost(_ context.Context, post *TrackedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("CreatePost"); err != nil {
		return err
	}
	if slices.ContainsFunc(m.posts, func(p TrackedPost) bool { return p.ID == post.ID }) {
		return nil
	}
	m.posts = append(m.posts, *post)
	return nil
}

func (m *memStore) PostsByUser(_ context.Context, user string) ([]TrackedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TrackedPost
	for _, p := range slices.Backward(m.posts) {
		if p.User == user {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) InsertVouch(_ context.Context, v *Vouch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("InsertVouch"); err != nil {
		return false, err
	}
	if slices.ContainsFunc(m.vouches, func(x Vouch) bool { return x.Permalink == v.Permalink }) {
		return false, nil
	}
	m.vouches = append(m.vouches, *v)
	return true, nil
}

func (m *memStore) CountVouches(_ context.Context, user string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.vouches {
		if v.User1 == user || v.User2 == user {
			n++
		}
	}
	return n, nil
}

func (m *memStore) VouchesByUser(_ context.Context, user string) ([]Vouch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Vouch
	for _, v := range slices.Backward(m.vouches) {
		if v.User1 == user || v.User2 == user {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) ListVouches(context.Context) ([]Vouch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("ListVouches"); err != nil {
		return nil, err
	}
	var out []Vouch
	for _, v := range slices.Backward(m.vouches) {
		out = append(out, v)
	}
	return out, nil
}

func (m *memStore) GetState(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("GetState"); err != nil {
		return "", err
	}
	return m.state[key], nil
}

func (m *memStore) SetState(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("SetState"); err != nil {
		return err
	}
	m.state[key] = value
	return nil
}

// recordingRefresher records every flair refresh request.
type recordingRefresher struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (r *recordingRefresher) Refresh(_ context.Context, user string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, user)
	return r.err
}

type recordingListener struct {
	mu      sync.Mutex
	vouches []Vouch
}

func (l *recordingListener) VouchRecorded(v Vouch) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vouches = append(l.vouches, v)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
