package models

import "time"

// Message is a one-time note addressed by an unguessable id. Content is
// plaintext unless PasswordHash is set, in which case it holds the framed
// ciphertext blob and only a reader with the password can recover it.
// AdminToken is returned once at creation and never exposed again; it is the
// sole credential for edit, password rotation and destruction.
type Message struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	PasswordHash  string    `json:"-"` // advisory verifier, "" iff Content is plaintext
	AllowResponse bool      `json:"allow_response"`
	AdminToken    string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// IsEncrypted reports whether Content is an encrypted blob. The verifier's
// presence is exactly the public "encrypted" flag.
func (m *Message) IsEncrypted() bool {
	return m.PasswordHash != ""
}

// Response is an anonymous reply to a Message. Responses are append-only and
// live exactly as long as their parent: destroying the message deletes them.
type Response struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
