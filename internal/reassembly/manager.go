// Package reassembly implements the three-step fragment protocol a chat turn
// arrives in: START binds a verified principal to a fresh connection, BODY
// frames deposit payload pieces in any order, END re-verifies the caller,
// stitches the pieces back together and decodes the chat request.
package reassembly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/scribechat/scribechat/internal/fragment"
	"github.com/scribechat/scribechat/internal/runtime"
	"github.com/scribechat/scribechat/models"
)

// Manager drives the fragment protocol over a fragment.Store. It never
// deletes fragments; completed or abandoned turns lapse by TTL.
type Manager struct {
	store    fragment.Store
	verifier runtime.Verifier
	ttl      time.Duration
	logger   *log.Logger
}

func NewManager(store fragment.Store, verifier runtime.Verifier, ttl time.Duration) *Manager {
	return &Manager{
		store:    store,
		verifier: verifier,
		ttl:      ttl,
		logger:   log.New(log.Writer(), "[REASSEMBLY] ", log.LstdFlags),
	}
}

// Start verifies the token, mints a connection ID and records the principal
// at fragment index 0.
func (m *Manager) Start(ctx context.Context, token string) (string, error) {
	principal, err := m.verifier.Verify(token)
	if err != nil {
		return "", err
	}
	connID := uuid.NewString()
	payload, err := json.Marshal(principal)
	if err != nil {
		return "", fmt.Errorf("marshal principal: %w", err)
	}
	if err := m.store.Put(ctx, connID, 0, payload, m.ttl); err != nil {
		return "", fmt.Errorf("store principal: %w", err)
	}
	m.logger.Printf("connection %s started for user %s", connID, principal.UserID)
	return connID, nil
}

// Append stores one payload piece. The wire index is zero-based over body
// pieces; storage index is shifted by one because index 0 holds the
// principal. A repeated index overwrites the earlier piece.
func (m *Manager) Append(ctx context.Context, connID string, index int, part string) error {
	if connID == "" {
		return &models.ValidationError{Reason: "no connection started"}
	}
	if index < 0 {
		return &models.ValidationError{Reason: "negative fragment index"}
	}
	if err := m.store.Put(ctx, connID, index+1, []byte(part), m.ttl); err != nil {
		return fmt.Errorf("store fragment: %w", err)
	}
	return nil
}

// Complete re-verifies the token against the stored principal, reassembles
// the payload in index order and decodes it into a ChatRequest.
func (m *Manager) Complete(ctx context.Context, connID, token string) (models.ChatRequest, models.Principal, error) {
	var zero models.ChatRequest

	principal, err := m.verifier.Verify(token)
	if err != nil {
		return zero, models.Principal{}, err
	}

	stored, err := m.store.Get(ctx, connID, 0)
	if errors.Is(err, fragment.ErrNotFound) {
		return zero, models.Principal{}, &models.ValidationError{Reason: "unknown or expired connection"}
	}
	if err != nil {
		return zero, models.Principal{}, fmt.Errorf("load principal: %w", err)
	}
	var bound models.Principal
	if err := json.Unmarshal(stored, &bound); err != nil {
		return zero, models.Principal{}, fmt.Errorf("decode principal: %w", err)
	}
	if bound.UserID != principal.UserID {
		return zero, models.Principal{}, &models.AuthenticationError{Reason: "token does not match connection principal"}
	}

	frags, err := m.store.List(ctx, connID)
	if err != nil {
		return zero, models.Principal{}, fmt.Errorf("list fragments: %w", err)
	}
	if len(frags) == 0 {
		return zero, models.Principal{}, &models.ValidationError{Reason: "empty payload"}
	}
	sort.Slice(frags, func(i, j int) bool { return frags[i].Index < frags[j].Index })

	var payload []byte
	for _, f := range frags {
		payload = append(payload, f.Payload...)
	}

	var req models.ChatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return zero, models.Principal{}, &models.ValidationError{Reason: "payload is not a valid chat request"}
	}
	if len(req.Turns) == 0 {
		return zero, models.Principal{}, &models.ValidationError{Reason: "chat request has no turns"}
	}
	if req.Question() == "" {
		return zero, models.Principal{}, &models.ValidationError{Reason: "chat request has no user turn"}
	}

	m.logger.Printf("connection %s completed: %d fragments, %d turns", connID, len(frags), len(req.Turns))
	return req, bound, nil
}
