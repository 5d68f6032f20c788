// Copyright (c) 2026 Howkings. All rights reserved.

package stubapi

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/howkings/howkings-go/internal/modulepool"
)

var (
	errEmailTaken     = errors.New("stubapi: email already registered")
	errBadCredentials = errors.New("stubapi: invalid credentials")
	errUnknownRefresh = errors.New("stubapi: unknown refresh token")
	errUnknownReset   = errors.New("stubapi: unknown reset token")
	errUnknownRequest = errors.New("stubapi: unknown module request")
	errDuplicateVote  = errors.New("stubapi: duplicate vote")
	errUnknownAccount = errors.New("stubapi: unknown account")
)

// account is a registered member.
type account struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash []byte
}

// memoryStore holds all stub state behind one mutex. It exists to exercise
// the SDK, not to survive restarts.
type memoryStore struct {
	mu sync.Mutex

	accounts      map[int64]*account
	emails        map[string]int64
	refreshTokens map[string]int64
	resetTokens   map[string]int64

	requests []*modulepool.ModuleRequest
	votes    map[voteKey]struct{}

	nextAccountID int64
	nextRequestID int64
}

type voteKey struct {
	requestID int64
	userID    int64
	language  string
}

func newMemoryStore() *memoryStore {
	store := &memoryStore{
		accounts:      make(map[int64]*account),
		emails:        make(map[string]int64),
		refreshTokens: make(map[string]int64),
		resetTokens:   make(map[string]int64),
		votes:         make(map[voteKey]struct{}),
		nextAccountID: 1,
		nextRequestID: 1,
	}
	store.seed()
	return store
}

// seed installs a known dev account and a few module requests so the SDK has
// something to talk to out of the box.
func (store *memoryStore) seed() {
	_, _ = store.createAccount("Jonas", "jonas@example.com", "+37061234567", "stiprusSlaptazodis123!")

	for _, request := range []*modulepool.ModuleRequest{
		{ModuleName: "Quantum Computing", Description: "Qubits, gates and algorithms for beginners", Language: "en", Tags: []string{"quantum-computing", "physics"}},
		{ModuleName: "Marine Biology", Description: "Life in the deep ocean", Language: "en", Tags: []string{"biology", "ocean"}},
		{ModuleName: "Dirbtinis intelektas", Description: "Neuroniniai tinklai nuo nulio", Language: "lt", Tags: []string{"ai", "machine-learning"}},
	} {
		request.ID = store.nextRequestID
		request.CreatedAt = time.Now()
		store.nextRequestID++
		store.requests = append(store.requests, request)
	}
}

// # Accounts

func (store *memoryStore) createAccount(name, email, phone, password string) (*account, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	store.mu.Lock()
	defer store.mu.Unlock()

	if _, taken := store.emails[normalized]; taken {
		return nil, errEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created := &account{
		ID:           store.nextAccountID,
		Name:         name,
		Email:        normalized,
		Phone:        phone,
		PasswordHash: hash,
	}
	store.nextAccountID++
	store.accounts[created.ID] = created
	store.emails[normalized] = created.ID
	return created, nil
}

func (store *memoryStore) authenticate(email, password string) (*account, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	store.mu.Lock()
	defer store.mu.Unlock()

	id, found := store.emails[normalized]
	if !found {
		return nil, errBadCredentials
	}

	member := store.accounts[id]
	if bcrypt.CompareHashAndPassword(member.PasswordHash, []byte(password)) != nil {
		return nil, errBadCredentials
	}
	return member, nil
}

func (store *memoryStore) account(id int64) (*account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	member, found := store.accounts[id]
	if !found {
		return nil, errUnknownAccount
	}
	return member, nil
}

func (store *memoryStore) deleteAccount(id int64) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	member, found := store.accounts[id]
	if !found {
		return errUnknownAccount
	}

	delete(store.accounts, id)
	delete(store.emails, member.Email)
	for token, owner := range store.refreshTokens {
		if owner == id {
			delete(store.refreshTokens, token)
		}
	}
	return nil
}

// # Password Recovery

// bindResetToken associates a reset token with the account behind email.
// Unknown addresses return false; the handler answers identically either way
// to avoid confirming which emails exist.
func (store *memoryStore) bindResetToken(token, email string) bool {
	normalized := strings.ToLower(strings.TrimSpace(email))

	store.mu.Lock()
	defer store.mu.Unlock()

	id, found := store.emails[normalized]
	if !found {
		return false
	}
	store.resetTokens[token] = id
	return true
}

// consumeResetToken redeems the token exactly once.
func (store *memoryStore) consumeResetToken(token string) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	userID, found := store.resetTokens[token]
	if !found {
		return 0, errUnknownReset
	}
	delete(store.resetTokens, token)
	return userID, nil
}

// updatePassword rehashes and swaps the account password, revoking every
// refresh token the account holds.
func (store *memoryStore) updatePassword(userID int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	member, found := store.accounts[userID]
	if !found {
		return errUnknownAccount
	}
	member.PasswordHash = hash

	for token, owner := range store.refreshTokens {
		if owner == userID {
			delete(store.refreshTokens, token)
		}
	}
	return nil
}

// # Refresh Tokens

// bindRefresh stores a fresh refresh token for the user, revoking any
// previous one (single active refresh token per user).
func (store *memoryStore) bindRefresh(token string, userID int64) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for existing, owner := range store.refreshTokens {
		if owner == userID {
			delete(store.refreshTokens, existing)
		}
	}
	store.refreshTokens[token] = userID
}

// rotateRefresh consumes the old token and returns its owner. The caller is
// expected to bind a replacement.
func (store *memoryStore) rotateRefresh(token string) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	userID, found := store.refreshTokens[token]
	if !found {
		return 0, errUnknownRefresh
	}
	delete(store.refreshTokens, token)
	return userID, nil
}

func (store *memoryStore) revokeRefreshFor(userID int64) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for token, owner := range store.refreshTokens {
		if owner == userID {
			delete(store.refreshTokens, token)
		}
	}
}

// # Module Requests

func (store *memoryStore) listRequests(offset, limit int) ([]*modulepool.ModuleRequest, int) {
	store.mu.Lock()
	defer store.mu.Unlock()

	total := len(store.requests)
	if offset >= total {
		return nil, total
	}

	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*modulepool.ModuleRequest, end-offset)
	copy(page, store.requests[offset:end])
	return page, total
}

func (store *memoryStore) createRequest(name, description, language string, tags []string) *modulepool.ModuleRequest {
	store.mu.Lock()
	defer store.mu.Unlock()

	request := &modulepool.ModuleRequest{
		ID:          store.nextRequestID,
		ModuleName:  name,
		Description: description,
		Language:    language,
		Tags:        tags,
		CreatedAt:   time.Now(),
	}
	store.nextRequestID++
	store.requests = append(store.requests, request)
	return request
}

// vote records one vote per user per request per language. A repeat returns
// errDuplicateVote; the new tally is returned on success.
func (store *memoryStore) vote(requestID, userID int64, language string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var target *modulepool.ModuleRequest
	for _, request := range store.requests {
		if request.ID == requestID {
			target = request
			break
		}
	}
	if target == nil {
		return 0, errUnknownRequest
	}

	key := voteKey{requestID: requestID, userID: userID, language: language}
	if _, voted := store.votes[key]; voted {
		return 0, errDuplicateVote
	}

	store.votes[key] = struct{}{}
	target.Votes++
	return target.Votes, nil
}
