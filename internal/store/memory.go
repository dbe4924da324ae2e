package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"viral-kid-platform/models"
)

// errDuplicateInteraction mirrors the unique (account_id, comment_id)
// index violation in Mongo.
var errDuplicateInteraction = errors.New("interaction already exists for this comment")

// MemStore is an in-memory Store used by tests and local tooling. It
// mirrors the MongoStore contract, including nil results for missing
// documents and the unique (account, comment) interaction constraint.
type MemStore struct {
	mu           sync.Mutex
	credentials  map[string]*models.InstagramCredentials // by account ID hex
	automations  map[string]*models.InstagramAutomation
	interactions map[string]*models.InstagramInteraction
	accounts     map[string]*models.Account
	logs         []models.AccountLog
	users        map[string]*models.User // by username
}

func NewMemStore() *MemStore {
	return &MemStore{
		credentials:  make(map[string]*models.InstagramCredentials),
		automations:  make(map[string]*models.InstagramAutomation),
		interactions: make(map[string]*models.InstagramInteraction),
		accounts:     make(map[string]*models.Account),
		users:        make(map[string]*models.User),
	}
}

// SeedAccount inserts an account and returns its ID.
func (s *MemStore) SeedAccount(account *models.Account) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	s.accounts[account.ID.Hex()] = account
	return account.ID.Hex()
}

// SeedCredentials inserts credentials keyed by their account ID.
func (s *MemStore) SeedCredentials(creds *models.InstagramCredentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if creds.ID.IsZero() {
		creds.ID = primitive.NewObjectID()
	}
	s.credentials[creds.AccountID.Hex()] = creds
}

func (s *MemStore) CredentialsByVerifyToken(_ context.Context, token string) (*models.InstagramCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.WebhookVerifyToken == token {
			return c, nil
		}
	}
	return nil, nil
}

func (s *MemStore) CredentialsByInstagramAccountID(_ context.Context, instagramAccountID string) (*models.InstagramCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.credentials {
		if c.InstagramAccountID == instagramAccountID {
			return c, nil
		}
	}
	return nil, nil
}

func (s *MemStore) CredentialsByAccountID(_ context.Context, accountID string) (*models.InstagramCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentials[accountID], nil
}

func (s *MemStore) UpdateCredentialsToken(_ context.Context, accountID, accessToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.credentials[accountID]; ok {
		c.AccessToken = accessToken
		c.TokenExpiresAt = &expiresAt
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemStore) AutomationByID(_ context.Context, id string) (*models.InstagramAutomation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.automations[id], nil
}

func (s *MemStore) EnabledAutomationForPost(_ context.Context, accountID, postID string) (*models.InstagramAutomation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []*models.InstagramAutomation
	for _, a := range s.automations {
		if a.AccountID.Hex() == accountID && a.PostID == postID && a.Enabled {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	// Most recently created wins, matching the Mongo implementation
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return candidates[0], nil
}

func (s *MemStore) ListAutomations(_ context.Context, accountID string) ([]models.InstagramAutomation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.InstagramAutomation{}
	for _, a := range s.automations {
		if a.AccountID.Hex() == accountID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) CreateAutomation(_ context.Context, automation *models.InstagramAutomation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if automation.ID.IsZero() {
		automation.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = now
	}
	automation.UpdatedAt = now
	s.automations[automation.ID.Hex()] = automation
	return nil
}

func (s *MemStore) UpdateAutomation(_ context.Context, automation *models.InstagramAutomation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	automation.UpdatedAt = time.Now()
	s.automations[automation.ID.Hex()] = automation
	return nil
}

func (s *MemStore) DeleteAutomation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.automations, id)
	for key, i := range s.interactions {
		if i.AutomationID.Hex() == id {
			delete(s.interactions, key)
		}
	}
	return nil
}

func (s *MemStore) InteractionByComment(_ context.Context, accountID, commentID string) (*models.InstagramInteraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.interactions {
		if i.AccountID.Hex() == accountID && i.CommentID == commentID {
			return i, nil
		}
	}
	return nil, nil
}

func (s *MemStore) InteractionByID(_ context.Context, id string) (*models.InstagramInteraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interactions[id], nil
}

func (s *MemStore) CountInteractions(_ context.Context, automationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, i := range s.interactions {
		if i.AutomationID.Hex() == automationID {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) CreateInteraction(_ context.Context, interaction *models.InstagramInteraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.interactions {
		if i.AccountID == interaction.AccountID && i.CommentID == interaction.CommentID {
			return errDuplicateInteraction
		}
	}
	if interaction.ID.IsZero() {
		interaction.ID = primitive.NewObjectID()
	}
	interaction.CreatedAt = time.Now()
	s.interactions[interaction.ID.Hex()] = interaction
	return nil
}

func (s *MemStore) MarkInteractionDMSent(_ context.Context, id, content string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.interactions[id]; ok {
		i.DMSent = true
		i.DMContent = content
		i.DMSentAt = &sentAt
	}
	return nil
}

func (s *MemStore) SetInteractionDMError(_ context.Context, id, dmError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.interactions[id]; ok {
		i.DMError = dmError
	}
	return nil
}

func (s *MemStore) DeleteInteractionsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for key, i := range s.interactions {
		if i.CreatedAt.Before(cutoff) {
			delete(s.interactions, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemStore) AccountByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id], nil
}

func (s *MemStore) ListAccounts(_ context.Context, userID string) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Account{}
	for _, a := range s.accounts {
		if a.UserID.Hex() == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *MemStore) CreateAccountLog(_ context.Context, accountID, level, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return err
	}
	s.logs = append(s.logs, models.AccountLog{
		ID:        primitive.NewObjectID(),
		AccountID: oid,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *MemStore) DeleteAccountLogsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.logs[:0]
	var deleted int64
	for _, l := range s.logs {
		if l.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	s.logs = kept
	return deleted, nil
}

func (s *MemStore) UserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username], nil
}

func (s *MemStore) UpsertUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.Username] = user
	return nil
}

// Interactions returns a snapshot of all interaction records.
func (s *MemStore) Interactions() []models.InstagramInteraction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InstagramInteraction, 0, len(s.interactions))
	for _, i := range s.interactions {
		out = append(out, *i)
	}
	return out
}
