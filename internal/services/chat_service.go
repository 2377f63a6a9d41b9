package services

import (
	"context"
	"sort"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SendMessage inserts a chat message. The row reaches local state only
// through the chat insert subscription, never through Submit.
type SendMessage struct {
	ProjectID primitive.ObjectID
	Text      string

	msg models.ChatMessage
}

func (c *SendMessage) Describe() (string, string) { return "message", "sent" }

func (c *SendMessage) EchoedBySubscription() bool { return true }

func (c *SendMessage) Validate(s state.State, actor models.User) error {
	prepared, err := prepareInsert(s, actor, models.ChatMessage{ProjectID: c.ProjectID, Text: c.Text}, clock())
	if err != nil {
		return err
	}
	c.msg = prepared.(models.ChatMessage)
	return nil
}

func (c *SendMessage) Execute(ctx context.Context, r *repository.Remote, _ state.State) ([]state.Delta, error) {
	stored, err := r.ChatMessages.Insert(ctx, &c.msg)
	if err != nil {
		return nil, err
	}
	return []state.Delta{state.Inserted(models.TableChatMessages, *stored)}, nil
}

// MarkConversationRead adds Reader to readBy on every message of the project
// that is still unread by them.
type MarkConversationRead struct {
	ProjectID primitive.ObjectID
	Reader    primitive.ObjectID
}

func (c *MarkConversationRead) Describe() (string, string) { return "conversation", "marked as read" }

func (c *MarkConversationRead) Validate(s state.State, actor models.User) error {
	if c.Reader != actor.ID || !scope.CanSeeProject(actor, c.ProjectID, s) {
		return ErrForbidden
	}
	return nil
}

func (c *MarkConversationRead) Execute(ctx context.Context, r *repository.Remote, s state.State) ([]state.Delta, error) {
	var ids []primitive.ObjectID
	var deltas []state.Delta
	for _, m := range s.ChatMessages {
		if m.ProjectID != c.ProjectID || !m.UnreadBy(c.Reader) {
			continue
		}
		ids = append(ids, m.ID)
		deltas = append(deltas, state.ReadBy(m.ID, c.Reader))
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.ChatMessages.AddToSet(ctx, ids, "read_by", c.Reader); err != nil {
		return nil, err
	}
	return deltas, nil
}

// Conversation is one project's chat as seen by a user.
type Conversation struct {
	Project  models.Project       `json:"project"`
	Messages []models.ChatMessage `json:"messages"`
	Unread   int                  `json:"unread"`
}

// ChatService reads conversations from the store and writes through the Mutator.
type ChatService struct {
	store   *state.Store
	mutator *Mutator
}

func NewChatService(store *state.Store, mutator *Mutator) *ChatService {
	return &ChatService{store: store, mutator: mutator}
}

func (s *ChatService) SendMessage(ctx context.Context, actor models.User, projectID primitive.ObjectID, text string) (Result, error) {
	return s.mutator.Submit(ctx, actor, &SendMessage{ProjectID: projectID, Text: text})
}

func (s *ChatService) MarkRead(ctx context.Context, actor models.User, projectID primitive.ObjectID) (Result, error) {
	return s.mutator.Submit(ctx, actor, &MarkConversationRead{ProjectID: projectID, Reader: actor.ID})
}

// GetChat returns the project's messages in timestamp order.
func (s *ChatService) GetChat(actor models.User, projectID primitive.ObjectID) (Conversation, error) {
	snap := s.store.Snapshot()
	project, ok := snap.Project(projectID)
	if !ok {
		return Conversation{}, ErrNotFound
	}
	if !scope.CanSeeProject(actor, projectID, snap) {
		logrus.WithFields(logrus.Fields{
			"userID":    actor.ID.Hex(),
			"projectID": projectID.Hex(),
		}).Warn("Chat access denied")
		return Conversation{}, ErrForbidden
	}
	return conversationOf(project, actor, snap), nil
}

// Conversations lists every relevant project's chat, most recent activity first.
func (s *ChatService) Conversations(actor models.User) []Conversation {
	snap := s.store.Snapshot()
	projects := scope.Projects(actor, snap)
	out := make([]Conversation, 0, len(projects))
	for _, p := range projects {
		out = append(out, conversationOf(p, actor, snap))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivity(out[i]).After(lastActivity(out[j]))
	})
	return out
}

func conversationOf(p models.Project, u models.User, s state.State) Conversation {
	c := Conversation{Project: p, Messages: []models.ChatMessage{}}
	for _, m := range s.ChatMessages {
		if m.ProjectID != p.ID {
			continue
		}
		c.Messages = append(c.Messages, m)
		if m.UnreadBy(u.ID) {
			c.Unread++
		}
	}
	sort.SliceStable(c.Messages, func(i, j int) bool {
		return c.Messages[i].Timestamp.Before(c.Messages[j].Timestamp)
	})
	return c
}

func lastActivity(c Conversation) time.Time {
	if n := len(c.Messages); n > 0 {
		return c.Messages[n-1].Timestamp
	}
	return c.Project.CreatedAt
}
