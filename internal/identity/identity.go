package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pickup-backend/internal/models"
	"pickup-backend/internal/xerrors"
)

const storeTimeout = 5 * time.Second

type AccountStore interface {
	Insert(ctx context.Context, a *models.Account) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type TokenStore interface {
	Insert(ctx context.Context, t *models.RefreshToken) (*models.RefreshToken, error)
	FindActive(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
	RevokeByHash(ctx context.Context, hash string) error
}

// IssuedRefresh is a freshly minted refresh token. Plain is only ever
// returned to the client; the store keeps its hash.
type IssuedRefresh struct {
	ID    primitive.ObjectID
	Plain string
}

type Service struct {
	accounts   AccountStore
	tokens     TokenStore
	bcryptCost int
	refreshTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
	compare    func(hash, password []byte) error

	decoyOnce sync.Once
	decoy     []byte
}

func NewService(accounts AccountStore, tokens TokenStore, bcryptCost int, refreshTTL time.Duration, logger *zap.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		accounts:   accounts,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		refreshTTL: refreshTTL,
		logger:     logger.Named("identity"),
		now:        time.Now,
		compare:    bcrypt.CompareHashAndPassword,
	}
}

// decoyHash is compared against when no account matches, so an unknown
// email costs as much as a wrong password.
func (s *Service) decoyHash() []byte {
	s.decoyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("decoy-password"), s.bcryptCost)
		if err != nil {
			s.logger.Warn("decoy hash generation failed", zap.Error(err))
			return
		}
		s.decoy = hash
	})
	return s.decoy
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. An empty role means collector.
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	role = strings.ToLower(strings.TrimSpace(role))

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, xerrors.MissingFields(missing)
	}
	if role == "" {
		role = models.RoleCollector
	}
	if !models.IsKnownRole(role) {
		return nil, xerrors.Validation("invalid role", "role must be collector or dispatcher")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	now := s.now().UTC()
	account, err := s.accounts.Insert(ctx, &models.Account{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, xerrors.ErrDuplicateKey) {
		s.logger.Info("register rejected, email exists", zap.String("email", email))
		return nil, xerrors.Auth(xerrors.ErrEmailTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}

	s.logger.Info("account registered", zap.String("accountId", account.ID.Hex()), zap.String("role", role))
	return account, nil
}

// Authenticate never distinguishes an unknown email from a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	email = NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		var missing []string
		if email == "" {
			missing = append(missing, "email")
		}
		if strings.TrimSpace(password) == "" {
			missing = append(missing, "password")
		}
		return nil, xerrors.MissingFields(missing)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, xerrors.ErrNoDocument) {
		_ = s.compare(s.decoyHash(), []byte(password))
		s.logger.Info("login rejected")
		return nil, xerrors.Auth(xerrors.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	if err := s.compare([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login rejected")
		return nil, xerrors.Auth(xerrors.ErrInvalidCredentials)
	}

	s.logger.Info("login succeeded", zap.String("accountId", account.ID.Hex()))
	return account, nil
}

func (s *Service) Account(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	account, err := s.accounts.FindByID(ctx, id)
	if errors.Is(err, xerrors.ErrNoDocument) {
		return nil, xerrors.NotFound("account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *Service) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return s.accounts.Exists(ctx, id)
}

func (s *Service) IssueRefresh(ctx context.Context, accountID primitive.ObjectID) (*IssuedRefresh, error) {
	plain, err := generateRefreshString()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	now := s.now().UTC()
	stored, err := s.tokens.Insert(ctx, &models.RefreshToken{
		AccountID: accountID,
		TokenHash: HashToken(plain),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &IssuedRefresh{ID: stored.ID, Plain: plain}, nil
}

// Rotate exchanges a valid refresh token for a new one and revokes the old.
func (s *Service) Rotate(ctx context.Context, plain string) (*models.Account, *IssuedRefresh, error) {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return nil, nil, xerrors.MissingFields([]string{"refreshToken"})
	}

	lookupCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	token, err := s.tokens.FindActive(lookupCtx, HashToken(plain))
	if errors.Is(err, xerrors.ErrNoDocument) {
		return nil, nil, xerrors.Auth(xerrors.ErrInvalidToken)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find refresh token: %w", err)
	}

	if token.Expired(s.now()) {
		_ = s.tokens.Revoke(lookupCtx, token.ID, nil)
		return nil, nil, xerrors.Auth(xerrors.ErrExpiredToken)
	}

	account, err := s.accounts.FindByID(lookupCtx, token.AccountID)
	if errors.Is(err, xerrors.ErrNoDocument) {
		return nil, nil, xerrors.Auth(xerrors.ErrInvalidToken)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find account: %w", err)
	}

	issued, err := s.IssueRefresh(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.tokens.Revoke(lookupCtx, token.ID, &issued.ID); err != nil {
		s.logger.Warn("revoking rotated refresh token failed", zap.Error(err))
	}
	return account, issued, nil
}

func (s *Service) Revoke(ctx context.Context, plain string) error {
	plain = strings.TrimSpace(plain)
	if plain == "" {
		return xerrors.MissingFields([]string{"refreshToken"})
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	err := s.tokens.RevokeByHash(ctx, HashToken(plain))
	if errors.Is(err, xerrors.ErrNoDocument) {
		return xerrors.Auth(xerrors.ErrInvalidToken)
	}
	return err
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateRefreshString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
