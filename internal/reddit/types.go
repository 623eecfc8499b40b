package reddit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackmichael/swapbot/internal/domain"
)

// Thing kinds and fullname prefixes.
const (
	kindComment = "t1"
	kindLink    = "t3"
	kindMore    = "more"

	prefixComment = kindComment + "_"
	prefixLink    = kindLink + "_"
)

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
		After    string  `json:"after"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type link struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Permalink  string  `json:"permalink"`
	Approved   bool    `json:"approved"`
	CreatedUTC float64 `json:"created_utc"`
}

func (l link) toDomain() domain.Submission {
	return domain.Submission{
		ID:        l.ID,
		Title:     l.Title,
		Body:      l.Selftext,
		Author:    l.Author,
		Permalink: l.Permalink,
		Approved:  l.Approved,
		CreatedAt: unixTime(l.CreatedUTC),
	}
}

type comment struct {
	ID        string  `json:"id"`
	ParentID  string  `json:"parent_id"`
	Author    string  `json:"author"`
	Body      string  `json:"body"`
	Permalink string  `json:"permalink"`
	Replies   replies `json:"replies"`
}

// replies is a comment's reply listing. Reddit sends an empty string instead
// of a listing when there are none.
type replies struct {
	listing *listing
}

func (r *replies) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' || bytes.Equal(data, []byte("null")) {
		r.listing = nil
		return nil
	}
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	r.listing = &l
	return nil
}

type account struct {
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int     `json:"link_karma"`
	CommentKarma int     `json:"comment_karma"`
}

type apiEnvelope struct {
	JSON *struct {
		Errors [][]any         `json:"errors"`
		Data   json.RawMessage `json:"data"`
	} `json:"json"`
}

// more is a "load more comments" placeholder. A placeholder with id "_" is
// a "continue this thread" link past the depth limit and has no children.
type more struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"`
}

// decode checks e for API errors and unmarshals its data into result when
// result is non-nil.
func (e apiEnvelope) decode(result any) error {
	if e.JSON == nil {
		return nil
	}
	if len(e.JSON.Errors) > 0 {
		return fmt.Errorf("API error: %v", e.JSON.Errors)
	}
	if result != nil && len(e.JSON.Data) > 0 {
		if err := json.Unmarshal(e.JSON.Data, result); err != nil {
			return fmt.Errorf("unmarshal response data: %w", err)
		}
	}
	return nil
}

// forest assembles a submission's comment tree. Ids hidden behind "load
// more" placeholders are queued in pending until they are fetched.
type forest struct {
	roots   []*domain.Comment
	byID    map[string]*domain.Comment
	pending []string
}

func newForest() *forest {
	return &forest{byID: make(map[string]*domain.Comment)}
}

// addListing adds a nested listing under parent, or at the top level when
// parent is nil.
func (f *forest) addListing(parent *domain.Comment, things []thing) error {
	for _, t := range things {
		switch t.Kind {
		case kindComment:
			var c comment
			if err := json.Unmarshal(t.Data, &c); err != nil {
				return fmt.Errorf("unmarshal comment: %w", err)
			}
			node, ok := f.node(c)
			if !ok {
				continue
			}
			f.attach(parent, node)
			if c.Replies.listing != nil {
				if err := f.addListing(node, c.Replies.listing.Data.Children); err != nil {
					return err
				}
			}
		case kindMore:
			if err := f.queue(t.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// addFlat adds the flat comment list returned by /api/morechildren. Each
// comment is attached through its parent_id; comments whose parent is unknown
// go to the top level.
func (f *forest) addFlat(things []thing) error {
	type placed struct {
		node   *domain.Comment
		parent string
	}
	var added []placed
	for _, t := range things {
		switch t.Kind {
		case kindComment:
			var c comment
			if err := json.Unmarshal(t.Data, &c); err != nil {
				return fmt.Errorf("unmarshal comment: %w", err)
			}
			if node, ok := f.node(c); ok {
				added = append(added, placed{node: node, parent: c.ParentID})
			}
		case kindMore:
			if err := f.queue(t.Data); err != nil {
				return err
			}
		}
	}

	// Parents may appear later in the batch than their children, so attach
	// only once every node in it is indexed.
	for _, p := range added {
		var parent *domain.Comment
		if id, ok := strings.CutPrefix(p.parent, prefixComment); ok {
			parent = f.byID[id]
		}
		f.attach(parent, p.node)
	}
	return nil
}

// node indexes a new comment. It reports false for a comment already in the
// tree.
func (f *forest) node(c comment) (*domain.Comment, bool) {
	if _, dup := f.byID[c.ID]; dup {
		return nil, false
	}
	n := &domain.Comment{
		ID:        c.ID,
		Author:    c.Author,
		Body:      c.Body,
		Permalink: c.Permalink,
	}
	f.byID[c.ID] = n
	return n, true
}

func (f *forest) attach(parent, n *domain.Comment) {
	if parent == nil {
		f.roots = append(f.roots, n)
		return
	}
	parent.Replies = append(parent.Replies, n)
}

func (f *forest) queue(data json.RawMessage) error {
	var m more
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshal more: %w", err)
	}
	if m.ID == "_" {
		return nil
	}
	f.pending = append(f.pending, m.Children...)
	return nil
}

// next removes and returns up to n pending ids that have not been asked for
// before.
func (f *forest) next(n int, requested map[string]struct{}) []string {
	batch := make([]string, 0, n)
	for len(f.pending) > 0 && len(batch) < n {
		id := f.pending[0]
		f.pending = f.pending[1:]
		if _, ok := requested[id]; ok {
			continue
		}
		if _, ok := f.byID[id]; ok {
			continue
		}
		requested[id] = struct{}{}
		batch = append(batch, id)
	}
	return batch
}
