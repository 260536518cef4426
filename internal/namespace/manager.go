package namespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/docchat-server/internal/storage"
)

// UploadRemover deletes a session's uploaded files.
type UploadRemover interface {
	RemoveSession(userID, sessionID string) error
	RemoveUser(userID string) error
}

// Manager tears down everything stored for a session.
type Manager struct {
	store   storage.VectorStore
	uploads UploadRemover
	logger  *slog.Logger
}

// NewManager creates a Manager. uploads may be nil when files are not kept.
func NewManager(store storage.VectorStore, uploads UploadRemover, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, uploads: uploads, logger: logger}
}

// Clear deletes the document namespace, the chat namespace and the upload
// directory of a session. Every step runs even if an earlier one fails;
// clearing a session that holds nothing succeeds.
func (m *Manager) Clear(ctx context.Context, userID, sessionID string) error {
	if m.store == nil {
		return storage.ErrNotConfigured
	}

	var errs []error
	for _, ns := range []string{Doc(userID, sessionID), Chat(userID, sessionID)} {
		if err := m.store.DeleteAll(ctx, ns); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", ns, err))
			continue
		}
		m.logger.Info("cleared namespace", "namespace", ns)
	}

	if m.uploads != nil {
		if err := m.uploads.RemoveSession(userID, sessionID); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ClearUser clears every listed session of a user and then the user's upload tree.
func (m *Manager) ClearUser(ctx context.Context, userID string, sessionIDs []string) error {
	var errs []error
	for _, sid := range sessionIDs {
		if err := m.Clear(ctx, userID, sid); err != nil {
			errs = append(errs, err)
		}
	}
	if m.uploads != nil {
		if err := m.uploads.RemoveUser(userID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
