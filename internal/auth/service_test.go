package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/fitzone/internal/model"
	"github.com/hitoshi/fitzone/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)

func newTestService(repo *mockUserRepo) *Service {
	return NewService(repo, NewTokenIssuer(testSecret, 24*time.Hour, fixedNow), ServiceConfig{BcryptCost: bcrypt.MinCost})
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- Register ---

func TestRegister_CreatesUserWithHashedPassword(t *testing.T) {
	var created *model.User
	svc := newTestService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	})

	res, err := svc.Register(context.Background(), RegisterInput{
		Name:     "  Jane Doe ",
		Email:    " Jane@Example.COM ",
		Password: "secret123",
		Phone:    "555-0100",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be created")
	}
	if created.Email != "jane@example.com" {
		t.Errorf("email = %q, want lower-cased", created.Email)
	}
	if created.Name != "Jane Doe" || created.Role != model.RoleUser || created.ID == "" {
		t.Errorf("created = %+v", created)
	}
	if created.PasswordHash == "secret123" {
		t.Error("パスワードは平文で保存されるべきではない")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")); err != nil {
		t.Errorf("hash mismatch: %v", err)
	}

	if res.Token == "" || res.User != created {
		t.Errorf("res = %+v", res)
	}
	if _, err := svc.Authenticate(res.Token); err != nil {
		t.Errorf("発行したトークンは検証できるべき: %v", err)
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			t.Error("Create は呼ばれるべきではない")
			return nil
		},
	})

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "secret123"})
	assertAPIErrorCode(t, err, model.ErrCodeEmailTaken)
}

func TestRegister_DuplicateOnCreate_MapsToEmailTaken(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicate
		},
	})

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "secret123"})
	assertAPIErrorCode(t, err, model.ErrCodeEmailTaken)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	user := &model.User{ID: "user-1", Email: "jane@example.com", PasswordHash: hashPassword(t, "secret123")}
	var lookedUp string
	svc := newTestService(&mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			lookedUp = email
			return user, nil
		},
	})

	res, err := svc.Login(context.Background(), "JANE@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if lookedUp != "jane@example.com" {
		t.Errorf("email lookup = %q", lookedUp)
	}

	sub, err := svc.Authenticate(res.Token)
	if err != nil || sub != "user-1" {
		t.Errorf("Authenticate = %q, %v", sub, err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", PasswordHash: hashPassword(t, "secret123")}, nil
		},
	})

	_, err := svc.Login(context.Background(), "jane@example.com", "wrong")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Login(context.Background(), "nobody@example.com", "secret123")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
}

func TestLogin_RepositoryError(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, errors.New("db down")
		},
	})

	_, err := svc.Login(context.Background(), "jane@example.com", "secret123")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("DB障害はAPIErrorにならないべき: %v", err)
	}
}

// --- Me / Refresh ---

func TestMe_UserNotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Me(context.Background(), "ghost")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

func TestMe_EmptyUserID(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	_, err := svc.Me(context.Background(), "")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
}

func TestRefresh_IssuesNewToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleUser}, nil
		},
	})

	res, err := svc.Refresh(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if res.User.ID != "user-1" || res.Token == "" {
		t.Errorf("res = %+v", res)
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	svc := newTestService(&mockUserRepo{})

	if _, err := svc.Authenticate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
