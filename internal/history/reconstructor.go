package history

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bull/docchat-server/internal/namespace"
	"github.com/bull/docchat-server/internal/retrieval"
	"github.com/bull/docchat-server/internal/storage"
)

// NoResponse is the answer of a question with no recorded reply.
const NoResponse = "No response recorded"

// DefaultK is how many messages are read from one chat namespace.
const DefaultK = 100

// Conversation is one reconstructed question/answer pair.
type Conversation struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

// Message is a chat message as read from the store.
type Message struct {
	Content  string
	Metadata storage.Metadata
}

// SessionLister lists the sessions a user owns.
type SessionLister interface {
	SessionIDs(ctx context.Context, userID string) ([]string, error)
}

// Stages returns the probes that enumerate a chat namespace: role-biased
// phrases first, then broader ones.
func Stages(k int) []retrieval.Stage {
	return []retrieval.Stage{
		{
			{Query: "user message question", K: k / 2},
			{Query: "assistant response answer", K: k / 2},
		},
		{{Query: "message chat conversation", K: k}},
		{{Query: "conversation", K: k}},
	}
}

// Reconstructor rebuilds ordered conversations from chat namespaces.
type Reconstructor struct {
	engine   *retrieval.Engine
	sessions SessionLister
	k        int
	logger   *slog.Logger
}

// NewReconstructor creates a Reconstructor. sessions may be nil, in which
// case History requires a session id.
func NewReconstructor(engine *retrieval.Engine, sessions SessionLister, k int, logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	if k <= 0 {
		k = DefaultK
	}
	return &Reconstructor{
		engine:   engine,
		sessions: sessions,
		k:        k,
		logger:   logger,
	}
}

// Messages reads the distinct messages of a chat namespace in store order.
// Messages with byte-identical text collapse into one.
func (r *Reconstructor) Messages(ctx context.Context, ns string) ([]Message, error) {
	if !r.engine.Configured() {
		return nil, storage.ErrNotConfigured
	}

	if count, known := r.engine.Visible(ctx, ns); known && count == 0 {
		r.logger.Info("no chat messages in namespace", "namespace", ns)
		return nil, nil
	}

	var matches []storage.Match
	listed := false
	if lister, ok := r.engine.Store().(storage.Lister); ok {
		found, err := lister.List(ctx, ns, r.k)
		if err == nil {
			matches, listed = found, true
		} else {
			r.logger.Warn("list failed, falling back to probes", "namespace", ns, "error", err)
		}
	}
	if !listed {
		matches = r.engine.Probe(ctx, ns, Stages(r.k))
	}

	seen := make(map[[sha256.Size]byte]bool, len(matches))
	messages := make([]Message, 0, len(matches))
	for _, m := range matches {
		sum := sha256.Sum256([]byte(m.Metadata.Text))
		if seen[sum] {
			continue
		}
		seen[sum] = true
		messages = append(messages, Message{Content: m.Metadata.Text, Metadata: m.Metadata})
	}

	r.logger.Info("read chat messages", "namespace", ns, "found", len(matches), "unique", len(messages))
	return messages, nil
}

// Session returns the conversations of one session, oldest first.
func (r *Reconstructor) Session(ctx context.Context, userID, sessionID string) ([]Conversation, error) {
	ns := namespace.Chat(userID, sessionID)
	messages, err := r.Messages(ctx, ns)
	if err != nil {
		return nil, err
	}
	return Pair(userID, sessionID, messages, r.logger), nil
}

// History returns the conversations of one session, or of every session of
// the user when sessionID is empty. Sessions are reconstructed one by one
// and concatenated in the order the SessionLister returns them.
func (r *Reconstructor) History(ctx context.Context, userID, sessionID string) ([]Conversation, error) {
	sessionIDs := []string{sessionID}
	if sessionID == "" {
		if r.sessions == nil {
			return nil, fmt.Errorf("session id required: no session lister configured")
		}
		ids, err := r.sessions.SessionIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessionIDs = ids
	}

	var all []Conversation
	for _, sid := range sessionIDs {
		convs, err := r.Session(ctx, userID, sid)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", sid, err)
		}
		all = append(all, convs...)
	}
	r.logger.Info("reconstructed history", "user_id", userID, "sessions", len(sessionIDs), "turns", len(all))
	return all, nil
}

// Pair orders messages by timestamp and walks them pairwise. A user message
// followed by an assistant message becomes one conversation stamped with the
// answer's time. A user message without a following answer, or whose
// follower answers a different question, becomes a conversation with
// NoResponse. Assistant messages that follow no question are dropped.
func Pair(userID, sessionID string, messages []Message, logger *slog.Logger) []Conversation {
	if logger == nil {
		logger = slog.Default()
	}

	var msgs []Message
	for _, m := range messages {
		role := m.Metadata.Role
		content := strings.TrimSpace(m.Content)
		if (role != storage.RoleUser && role != storage.RoleAssistant) || content == "" {
			continue
		}
		m.Content = content
		msgs = append(msgs, m)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i].Metadata, msgs[j].Metadata
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.Role != b.Role {
			return a.Role == storage.RoleUser
		}
		return msgs[i].Content < msgs[j].Content
	})

	var out []Conversation
	for i := 0; i < len(msgs); {
		cur := msgs[i]
		if cur.Metadata.Role != storage.RoleUser {
			logger.Debug("dropping unpaired assistant message", "message_id", cur.Metadata.MessageID)
			i++
			continue
		}

		if i+1 < len(msgs) && msgs[i+1].Metadata.Role == storage.RoleAssistant {
			next := msgs[i+1]
			if answers(next.Metadata, cur.Metadata) {
				out = append(out, Conversation{
					UserID:    userID,
					SessionID: sessionID,
					Question:  cur.Content,
					Answer:    next.Content,
					Timestamp: next.Metadata.Timestamp,
				})
				i += 2
				continue
			}
			logger.Warn("answer links to a different question",
				"question_id", cur.Metadata.MessageID,
				"related_question_id", next.Metadata.RelatedQuestionID)
		}

		out = append(out, Conversation{
			UserID:    userID,
			SessionID: sessionID,
			Question:  cur.Content,
			Answer:    NoResponse,
			Timestamp: cur.Metadata.Timestamp,
		})
		i++
	}
	return out
}

// answers reports whether answer may be paired with question. Messages
// without link ids are paired by position alone.
func answers(answer, question storage.Metadata) bool {
	if answer.RelatedQuestionID == "" || question.MessageID == "" {
		return true
	}
	return answer.RelatedQuestionID == question.MessageID
}
