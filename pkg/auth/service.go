package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/stillmind/meditation-service/pkg/store"
)

// ErrAccountNotFound is returned when an account id resolves to nothing.
var ErrAccountNotFound = errors.New("account not found")

// credentialRecord is one row of the credentials map keyed by lowercase email.
type credentialRecord struct {
	PasswordHash string `json:"passwordHash"`
	AccountID    string `json:"accountId"`
	Name         string `json:"name"`
}

// Service resolves login/signup/guest/sign-out operations to an account
// identity. Credentials and account records live behind the persistence
// facade; password hashes are bcrypt.
type Service struct {
	kv  store.Store
	now func() time.Time
}

// NewService creates the auth service.
func NewService(kv store.Store) *Service {
	return &Service{kv: kv, now: time.Now}
}

// SignUp registers a new email account.
func (s *Service) SignUp(ctx context.Context, email, name, password string, profile *Profile) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || name == "" || password == "" {
		return Account{}, ErrBadCredentials
	}

	credentials, err := s.loadCredentials(ctx)
	if err != nil {
		return Account{}, err
	}
	if _, exists := credentials[email]; exists {
		return Account{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account := Account{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Anonymous: false,
		Provider:  ProviderEmail,
		Profile:   profileOrDefault(profile),
		CreatedAt: s.now(),
	}

	credentials[email] = credentialRecord{
		PasswordHash: string(hash),
		AccountID:    account.ID,
		Name:         name,
	}

	if err := s.saveCredentials(ctx, credentials); err != nil {
		return Account{}, err
	}
	if err := s.saveAccount(ctx, account); err != nil {
		return Account{}, err
	}

	logrus.Infof("account created: id=%s provider=%s", account.ID, account.Provider)
	return account, nil
}

// SignIn validates email credentials and resolves the account.
func (s *Service) SignIn(ctx context.Context, email, password string) (Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Account{}, ErrBadCredentials
	}

	credentials, err := s.loadCredentials(ctx)
	if err != nil {
		return Account{}, err
	}

	record, exists := credentials[email]
	if !exists {
		return Account{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
		return Account{}, ErrBadCredentials
	}

	account, err := s.Get(ctx, record.AccountID)
	if errors.Is(err, ErrAccountNotFound) {
		// Credentials outlived the account record; rebuild a minimal one.
		account = Account{
			ID:        record.AccountID,
			Email:     email,
			Name:      record.Name,
			Provider:  ProviderEmail,
			Profile:   DefaultProfile(),
			CreatedAt: s.now(),
		}
		if err := s.saveAccount(ctx, account); err != nil {
			return Account{}, err
		}
		return account, nil
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// SignInAsGuest creates an anonymous account.
func (s *Service) SignInAsGuest(ctx context.Context) (Account, error) {
	account := Account{
		ID:        "guest_" + uuid.New().String(),
		Name:      "Guest",
		Anonymous: true,
		Provider:  ProviderGuest,
		Profile:   DefaultProfile(),
		CreatedAt: s.now(),
	}

	if err := s.saveAccount(ctx, account); err != nil {
		return Account{}, err
	}

	logrus.Infof("guest account created: id=%s", account.ID)
	return account, nil
}

// SignInWithProvider is the social-login boundary. No social provider is
// wired in this deployment, so it always reports ErrProviderNotConfigured;
// callers surface it as a normal user-facing message.
func (s *Service) SignInWithProvider(ctx context.Context, provider Provider, token string) (Account, error) {
	if provider != ProviderGoogle && provider != ProviderApple {
		return Account{}, ErrProviderNotConfigured
	}
	return Account{}, ErrProviderNotConfigured
}

// SignOut ends the account's session. Guest accounts are discarded entirely:
// an anonymous identity cannot be signed back into.
func (s *Service) SignOut(ctx context.Context, accountID string) error {
	account, err := s.Get(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if account.Anonymous {
		if err := s.kv.Delete(ctx, store.AccountKey(accountID)); err != nil {
			return normalizeStoreErr(err)
		}
		logrus.Infof("guest account discarded: id=%s", accountID)
		return nil
	}

	logrus.Infof("account signed out: id=%s", accountID)
	return nil
}

// Get resolves an account id to its record.
func (s *Service) Get(ctx context.Context, accountID string) (Account, error) {
	data, err := s.kv.Get(ctx, store.AccountKey(accountID))
	if errors.Is(err, store.ErrNotFound) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, normalizeStoreErr(err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return Account{}, fmt.Errorf("failed to unmarshal account %s: %w", accountID, err)
	}
	return account, nil
}

// UpdateProfile merges profile changes into the account.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, profile Profile) (Account, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return Account{}, err
	}

	if profile.Goal != "" {
		account.Profile.Goal = profile.Goal
	}
	if profile.DailyTime != "" {
		account.Profile.DailyTime = profile.DailyTime
	}
	if profile.ExperienceLevel != "" {
		account.Profile.ExperienceLevel = profile.ExperienceLevel
	}

	if err := s.saveAccount(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// ConvertGuest upgrades an anonymous account to a registered one, keeping its
// id so habit history and trial state carry over.
func (s *Service) ConvertGuest(ctx context.Context, accountID, email, name, password string) (Account, error) {
	account, err := s.Get(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if !account.Anonymous {
		return account, nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || name == "" || password == "" {
		return Account{}, ErrBadCredentials
	}

	credentials, err := s.loadCredentials(ctx)
	if err != nil {
		return Account{}, err
	}
	if _, exists := credentials[email]; exists {
		return Account{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account.Email = email
	account.Name = name
	account.Anonymous = false
	account.Provider = ProviderEmail

	credentials[email] = credentialRecord{
		PasswordHash: string(hash),
		AccountID:    account.ID,
		Name:         name,
	}

	if err := s.saveCredentials(ctx, credentials); err != nil {
		return Account{}, err
	}
	if err := s.saveAccount(ctx, account); err != nil {
		return Account{}, err
	}

	logrus.Infof("guest account converted: id=%s", account.ID)
	return account, nil
}

func (s *Service) loadCredentials(ctx context.Context) (map[string]credentialRecord, error) {
	data, err := s.kv.Get(ctx, store.KeyCredentials)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]credentialRecord{}, nil
	}
	if err != nil {
		return nil, normalizeStoreErr(err)
	}

	var credentials map[string]credentialRecord
	if err := json.Unmarshal([]byte(data), &credentials); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return credentials, nil
}

func (s *Service) saveCredentials(ctx context.Context, credentials map[string]credentialRecord) error {
	data, err := json.Marshal(credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyCredentials, string(data)); err != nil {
		return normalizeStoreErr(err)
	}
	return nil
}

func (s *Service) saveAccount(ctx context.Context, account Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := s.kv.Set(ctx, store.AccountKey(account.ID), string(data)); err != nil {
		return normalizeStoreErr(err)
	}
	return nil
}

// normalizeStoreErr maps persistence failures onto the network bucket of the
// normalized error set.
func normalizeStoreErr(err error) error {
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
