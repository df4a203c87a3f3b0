package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong email or password.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("identity: password must be at least 8 characters")
	// ErrNotAdmin signals the caller lacks the admin capability required for
	// grant and revoke operations.
	ErrNotAdmin = errors.New("identity: caller is not an admin")
	// ErrUnknownCapability signals an unrecognized capability name.
	ErrUnknownCapability = errors.New("identity: unknown capability")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service is the role and identity directory: it authenticates principals
// and answers capability queries for the dispute core.
type Service struct {
	pool      TxBeginner
	repo      Repository
	jwtSecret []byte
}

// LoginResult bundles the token and principal returned after a successful login.
type LoginResult struct {
	Token     string
	Principal Principal
}

// NewService creates a new identity service.
func NewService(pool TxBeginner, repo Repository, jwtSecret string) *Service {
	return &Service{
		pool:      pool,
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates a new principal account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Principal, error) {
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if req.Email == "" || req.FullName == "" {
		return nil, fmt.Errorf("identity: email and full_name are required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}

	p, err := s.repo.CreatePrincipal(ctx, CreatePrincipalParams{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// Login authenticates a principal and returns a JWT token carrying the
// principal id and currently held capabilities.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	p, err := s.repo.GetPrincipalByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	caps, err := s.repo.ListCapabilities(ctx, p.ID)
	if err != nil {
		return LoginResult{}, err
	}

	token, err := s.generateToken(p.ID, caps)
	if err != nil {
		return LoginResult{}, fmt.Errorf("identity: generate token: %w", err)
	}

	return LoginResult{
		Token:     token,
		Principal: p,
	}, nil
}

// GetPrincipalByID retrieves principal information by ID.
func (s *Service) GetPrincipalByID(ctx context.Context, principalID string) (*Principal, error) {
	p, err := s.repo.GetPrincipalByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasCapability reports whether the principal holds the capability. The
// dispute core consults this before every guarded transition.
func (s *Service) HasCapability(ctx context.Context, principalID string, capability Capability) (bool, error) {
	if !isValidCapability(capability) {
		return false, ErrUnknownCapability
	}
	return s.repo.HasCapability(ctx, principalID, capability)
}

// GrantCapability grants a capability to a principal. Only admins may grant.
func (s *Service) GrantCapability(ctx context.Context, callerID, principalID string, capability Capability) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if !isValidCapability(capability) {
		return ErrUnknownCapability
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("identity: begin grant tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.InsertGrant(ctx, tx, principalID, capability, &callerID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("identity: commit grant: %w", err)
	}
	return nil
}

// RevokeCapability removes a capability from a principal. Only admins may revoke.
func (s *Service) RevokeCapability(ctx context.Context, callerID, principalID string, capability Capability) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if !isValidCapability(capability) {
		return ErrUnknownCapability
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("identity: begin revoke tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.DeleteGrant(ctx, tx, principalID, capability); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("identity: commit revoke: %w", err)
	}
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, callerID string) error {
	isAdmin, err := s.repo.HasCapability(ctx, callerID, CapabilityAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrNotAdmin
	}
	return nil
}

// VerifyToken validates a JWT token and returns the principal ID and the
// capabilities embedded at issue time.
func (s *Service) VerifyToken(tokenString string) (string, []Capability, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return "", nil, fmt.Errorf("identity: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", nil, fmt.Errorf("identity: invalid token")
	}

	principalID, ok := claims["principal_id"].(string)
	if !ok {
		return "", nil, fmt.Errorf("identity: invalid principal_id in token")
	}

	rawCaps, _ := claims["capabilities"].([]any)
	caps := make([]Capability, 0, len(rawCaps))
	for _, rc := range rawCaps {
		str, ok := rc.(string)
		if !ok || !isValidCapability(Capability(str)) {
			return "", nil, fmt.Errorf("identity: invalid capability %v in token", rc)
		}
		caps = append(caps, Capability(str))
	}

	return principalID, caps, nil
}

// generateToken creates a JWT token for the principal.
func (s *Service) generateToken(principalID string, caps []Capability) (string, error) {
	capStrings := make([]string, len(caps))
	for i, c := range caps {
		capStrings[i] = string(c)
	}

	claims := jwt.MapClaims{
		"principal_id": principalID,
		"capabilities": capStrings,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
