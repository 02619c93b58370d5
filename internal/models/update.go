package models

import (
	"errors"
	"regexp"
	"slices"
	"strings"
	"time"
)

var ErrUpdateNotFound = errors.New("update not found")

// TaskUpdate is a comment in a task's update thread. Replies nest one level.
type TaskUpdate struct {
	ID        string       `json:"id"`
	Author    string       `json:"author"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Mentions  []string     `json:"mentions,omitempty"`
	Replies   []TaskUpdate `json:"replies"`
	Likes     int          `json:"likes"`
	LikedBy   []string     `json:"likedBy"`
}

// NewUpdate creates an update with empty reply and like lists.
func NewUpdate(id, author, content string, mentions []string, now time.Time) TaskUpdate {
	return TaskUpdate{
		ID:        id,
		Author:    author,
		Content:   strings.TrimSpace(content),
		Timestamp: now.UTC(),
		Mentions:  mentions,
		Replies:   []TaskUpdate{},
		LikedBy:   []string{},
	}
}

// ToggleLike adds or removes name from LikedBy and reports whether it is now liked.
func (u *TaskUpdate) ToggleLike(name string) bool {
	liked := false
	if i := slices.Index(u.LikedBy, name); i >= 0 {
		u.LikedBy = slices.Delete(u.LikedBy, i, i+1)
	} else {
		u.LikedBy = append(u.LikedBy, name)
		liked = true
	}
	u.Likes = len(u.LikedBy)
	return liked
}

// Find returns the update or reply with the given id.
func (us Updates) Find(id string) (*TaskUpdate, error) {
	for i := range us {
		if us[i].ID == id {
			return &us[i], nil
		}
		for j := range us[i].Replies {
			if us[i].Replies[j].ID == id {
				return &us[i].Replies[j], nil
			}
		}
	}
	return nil, ErrUpdateNotFound
}

// Thread returns the top-level update that is, or contains, id.
func (us Updates) Thread(id string) (*TaskUpdate, error) {
	for i := range us {
		if us[i].ID == id {
			return &us[i], nil
		}
		for _, r := range us[i].Replies {
			if r.ID == id {
				return &us[i], nil
			}
		}
	}
	return nil, ErrUpdateNotFound
}

// AddReply appends reply to the thread holding parentID.
func (t *Task) AddReply(parentID string, reply TaskUpdate) error {
	parent, err := t.Updates.Thread(parentID)
	if err != nil {
		return err
	}
	parent.Replies = append(parent.Replies, reply)
	return nil
}

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ParseMentions returns the @names in content that match a known person,
// in first-seen order. A known person matches on the full name or the first
// word of it, case-insensitively.
func ParseMentions(content string, known []string) []string {
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		for _, name := range known {
			first, _, _ := strings.Cut(name, " ")
			if !strings.EqualFold(m[1], name) && !strings.EqualFold(m[1], first) {
				continue
			}
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
			break
		}
	}
	return out
}
