package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestService_RegisterAndLogin(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo, "test-secret")

	req := RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersafe",
		FullName: "Alice Plaintiff",
	}

	ctx := context.Background()
	p, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}

	if p.Email != req.Email {
		t.Fatalf("expected email %q got %q", req.Email, p.Email)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.Principal.ID != p.ID {
		t.Fatalf("login: expected principal id %q got %q", p.ID, resp.Principal.ID)
	}

	tokenID, caps, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if tokenID != p.ID {
		t.Fatalf("verify token: expected %q got %q", p.ID, tokenID)
	}
	if len(caps) != 0 {
		t.Fatalf("verify token: expected no capabilities, got %v", caps)
	}
}

func TestService_TokenCarriesCapabilities(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo, "test-secret")

	ctx := context.Background()
	p, err := svc.Register(ctx, RegisterRequest{
		Email:    "carol@example.com",
		Password: "strongpassword",
		FullName: "Carol Arbitrator",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	repo.grants[p.ID] = []Capability{CapabilityArbitrator}

	resp, err := svc.Login(ctx, LoginRequest{Email: "carol@example.com", Password: "strongpassword"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, caps, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if len(caps) != 1 || caps[0] != CapabilityArbitrator {
		t.Fatalf("expected [arbitrator], got %v", caps)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo, "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "short",
		FullName: "Alice Plaintiff",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "",
		Password: "strongpassword",
		FullName: "",
	}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}
}

func TestService_DuplicateEmail(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo, "test-secret")

	req := RegisterRequest{
		Email:    "alice@example.com",
		Password: "strongpassword",
		FullName: "Alice Plaintiff",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo, "test-secret")

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "unknown@example.com",
		Password: "irrelevant",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_GrantRequiresAdmin(t *testing.T) {
	repo := newFakeRepository()
	pool := &fakePool{}
	svc := NewService(pool, repo, "test-secret")

	ctx := context.Background()
	admin, _ := svc.Register(ctx, RegisterRequest{Email: "admin@example.com", Password: "strongpassword", FullName: "Admin"})
	target, _ := svc.Register(ctx, RegisterRequest{Email: "mia@example.com", Password: "strongpassword", FullName: "Mia Mediator"})

	if err := svc.GrantCapability(ctx, admin.ID, target.ID, CapabilityMediator); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin for non-admin caller, got %v", err)
	}

	repo.grants[admin.ID] = []Capability{CapabilityAdmin}
	if err := svc.GrantCapability(ctx, admin.ID, target.ID, CapabilityMediator); err != nil {
		t.Fatalf("grant by admin failed: %v", err)
	}
	if pool.tx == nil || !pool.tx.committed {
		t.Fatal("expected grant to commit a transaction")
	}

	held, err := svc.HasCapability(ctx, target.ID, CapabilityMediator)
	if err != nil {
		t.Fatalf("has capability: %v", err)
	}
	if !held {
		t.Fatal("expected mediator capability to be held after grant")
	}

	if err := svc.GrantCapability(ctx, admin.ID, target.ID, Capability("overlord")); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
}

func TestService_RevokeRemovesCapability(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo, "test-secret")

	ctx := context.Background()
	admin, _ := svc.Register(ctx, RegisterRequest{Email: "admin@example.com", Password: "strongpassword", FullName: "Admin"})
	target, _ := svc.Register(ctx, RegisterRequest{Email: "mia@example.com", Password: "strongpassword", FullName: "Mia Mediator"})
	repo.grants[admin.ID] = []Capability{CapabilityAdmin}
	repo.grants[target.ID] = []Capability{CapabilityMediator}

	if err := svc.RevokeCapability(ctx, admin.ID, target.ID, CapabilityMediator); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	held, err := svc.HasCapability(ctx, target.ID, CapabilityMediator)
	if err != nil {
		t.Fatalf("has capability: %v", err)
	}
	if held {
		t.Fatal("expected mediator capability to be gone after revoke")
	}
}

type fakeRepository struct {
	byEmail map[string]Principal
	byID    map[string]Principal
	grants  map[string][]Capability
	nextID  int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byEmail: make(map[string]Principal),
		byID:    make(map[string]Principal),
		grants:  make(map[string][]Capability),
		nextID:  1,
	}
}

func (f *fakeRepository) CreatePrincipal(ctx context.Context, params CreatePrincipalParams) (Principal, error) {
	if _, exists := f.byEmail[strings.ToLower(params.Email)]; exists {
		return Principal{}, ErrDuplicateEmail
	}

	id := fmt.Sprintf("principal-%d", f.nextID)
	f.nextID++

	p := Principal{
		ID:           id,
		Email:        params.Email,
		FullName:     params.FullName,
		PasswordHash: params.PasswordHash,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	f.byEmail[strings.ToLower(p.Email)] = p
	f.byID[p.ID] = p

	return p, nil
}

func (f *fakeRepository) GetPrincipalByEmail(ctx context.Context, email string) (Principal, error) {
	p, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	return p, nil
}

func (f *fakeRepository) GetPrincipalByID(ctx context.Context, principalID string) (Principal, error) {
	p, ok := f.byID[principalID]
	if !ok {
		return Principal{}, ErrPrincipalNotFound
	}
	return p, nil
}

func (f *fakeRepository) HasCapability(ctx context.Context, principalID string, capability Capability) (bool, error) {
	for _, c := range f.grants[principalID] {
		if c == capability {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) ListCapabilities(ctx context.Context, principalID string) ([]Capability, error) {
	return f.grants[principalID], nil
}

func (f *fakeRepository) InsertGrant(ctx context.Context, tx pgx.Tx, principalID string, capability Capability, grantedBy *string) error {
	for _, c := range f.grants[principalID] {
		if c == capability {
			return nil
		}
	}
	f.grants[principalID] = append(f.grants[principalID], capability)
	return nil
}

func (f *fakeRepository) DeleteGrant(ctx context.Context, tx pgx.Tx, principalID string, capability Capability) error {
	kept := f.grants[principalID][:0]
	for _, c := range f.grants[principalID] {
		if c != capability {
			kept = append(kept, c)
		}
	}
	f.grants[principalID] = kept
	return nil
}
