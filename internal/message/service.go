// Package message implements the message lifecycle: creation, public read,
// anonymous responses, and the token-gated mutations (edit, password
// rotation, destruction).
//
// A message has exactly two states, active and destroyed. Destruction is
// terminal and not idempotent: a second destroy of the same id reports
// ErrNotFound, indistinguishable from an id that never existed. Expiry is
// enforced by the store, which surfaces expired records as not found.
package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"burn.note/internal/crypto"
	"burn.note/internal/models"
	"burn.note/internal/store"
)

var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("message not found")
	ErrUnauthorized = errors.New("invalid admin token")
	ErrForbidden    = errors.New("responses are not enabled")
)

// Service orchestrates the crypto primitives and the store. It holds no
// mutable state of its own; concurrent mutations of the same message race at
// the store under last-writer-wins.
type Service struct {
	store      store.Store
	retention  time.Duration
	maxContent int
}

func NewService(st store.Store, retention time.Duration, maxContent int) *Service {
	return &Service{
		store:      st,
		retention:  retention,
		maxContent: maxContent,
	}
}

// CreateResult carries the two credentials minted at creation. AdminToken is
// shown exactly once; it is never readable again through any operation.
type CreateResult struct {
	ID         string
	AdminToken string
	ExpiresAt  time.Time
}

// View is the public shape of a message. It deliberately has no field for the
// admin token or the password verifier beyond the boolean flag.
type View struct {
	ID            string
	Content       string
	IsEncrypted   bool
	AllowResponse bool
}

// Create stores a new message. With a password the content is encrypted
// before it reaches the store and the advisory verifier is recorded; without
// one the content is stored as given and no verifier exists.
func (s *Service) Create(ctx context.Context, plaintext, password string, allowResponse bool) (*CreateResult, error) {
	if err := s.validateContent(plaintext); err != nil {
		return nil, err
	}

	content := plaintext
	verifier := ""
	if password != "" {
		blob, err := crypto.Encrypt([]byte(plaintext), password)
		if err != nil {
			return nil, fmt.Errorf("encrypting message: %w", err)
		}
		content = blob
		verifier = crypto.HashPassword(password)
	}

	now := time.Now()
	msg := &models.Message{
		ID:            crypto.GenerateID(),
		Content:       content,
		PasswordHash:  verifier,
		AllowResponse: allowResponse,
		AdminToken:    crypto.GenerateToken(),
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.retention),
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	return &CreateResult{
		ID:         msg.ID,
		AdminToken: msg.AdminToken,
		ExpiresAt:  msg.ExpiresAt,
	}, nil
}

// Read returns the public view of a message. Decryption is the reader's job;
// the service hands out the blob untouched.
func (s *Service) Read(ctx context.Context, id string) (*View, error) {
	msg, err := s.getMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	return &View{
		ID:            msg.ID,
		Content:       msg.Content,
		IsEncrypted:   msg.IsEncrypted(),
		AllowResponse: msg.AllowResponse,
	}, nil
}

// SubmitResponse appends an anonymous response to a message that allows them.
func (s *Service) SubmitResponse(ctx context.Context, id, content string) (string, error) {
	if err := s.validateContent(content); err != nil {
		return "", err
	}

	msg, err := s.getMessage(ctx, id)
	if err != nil {
		return "", err
	}
	if !msg.AllowResponse {
		return "", ErrForbidden
	}

	resp := &models.Response{
		ID:        uuid.NewString(),
		MessageID: id,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveResponse(ctx, resp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return resp.ID, nil
}

// ListResponses returns a message's responses to the holder of its admin
// token. Responses are never reachable through Read.
func (s *Service) ListResponses(ctx context.Context, id, token string) ([]*models.Response, error) {
	msg, err := s.getMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(msg, token); err != nil {
		return nil, err
	}
	return s.store.ListResponses(ctx, id)
}

// Edit replaces the content of a message. A password re-encrypts under it and
// replaces the verifier; no password stores the new content in the clear and
// clears the verifier. The admin token is unchanged.
func (s *Service) Edit(ctx context.Context, id, token, plaintext, password string) error {
	if err := s.validateContent(plaintext); err != nil {
		return err
	}

	msg, err := s.getMessage(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(msg, token); err != nil {
		return err
	}

	return s.replaceContent(ctx, msg, plaintext, password)
}

// RotatePassword re-keys a message without changing its content. The current
// password must open the stored blob first; a wrong one fails with
// crypto.ErrDecryptionFailed before anything is written. An empty new
// password removes the protection.
func (s *Service) RotatePassword(ctx context.Context, id, token, currentPassword, newPassword string) error {
	msg, err := s.getMessage(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(msg, token); err != nil {
		return err
	}

	plaintext := msg.Content
	if msg.IsEncrypted() {
		decrypted, err := crypto.Decrypt(msg.Content, currentPassword)
		if err != nil {
			return err
		}
		plaintext = string(decrypted)
	}

	return s.replaceContent(ctx, msg, plaintext, newPassword)
}

// Destroy removes the message and all of its responses in one atomic unit.
func (s *Service) Destroy(ctx context.Context, id, token string) error {
	msg, err := s.getMessage(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(msg, token); err != nil {
		return err
	}

	if err := s.store.DeleteMessage(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) replaceContent(ctx context.Context, msg *models.Message, plaintext, password string) error {
	content := plaintext
	verifier := ""
	if password != "" {
		blob, err := crypto.Encrypt([]byte(plaintext), password)
		if err != nil {
			return fmt.Errorf("encrypting message: %w", err)
		}
		content = blob
		verifier = crypto.HashPassword(password)
	}

	msg.Content = content
	msg.PasswordHash = verifier

	if err := s.store.UpdateMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) getMessage(ctx context.Context, id string) (*models.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

func (s *Service) authorize(msg *models.Message, token string) error {
	if !crypto.VerifyToken(token, msg.AdminToken) {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) validateContent(content string) error {
	if content == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if len(content) > s.maxContent {
		return fmt.Errorf("%w: content exceeds %d bytes", ErrValidation, s.maxContent)
	}
	return nil
}
