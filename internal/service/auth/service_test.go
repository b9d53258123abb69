package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"freelanceos/internal/repository"
	"freelanceos/pkg/rbac"
	"freelanceos/pkg/util"
)

func newTestService() *Service {
	return NewService(repository.NewMemoryUsers(), "secret", time.Hour, zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	u, err := svc.Register(ctx, RegisterInput{Email: "owner@example.com", Password: "correct-horse", Role: rbac.RoleClient})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != rbac.RoleAdmin {
		t.Errorf("public registration must create admins, got %q", u.Role)
	}

	sess, err := svc.Login(ctx, "owner@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := util.ParseJWT(sess.Token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != u.ID || claims.Role != rbac.RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	in := RegisterInput{Email: "a@example.com", Password: "password1"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "nope", Password: "password1"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected invalid email, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.c", Password: "short"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected short password error, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	_, _ = svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1"})

	if _, err := svc.Login(ctx, "a@example.com", "password2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestInviteClient(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	if _, err := svc.InviteClient(ctx, RegisterInput{Email: "c@example.com", Password: "password1"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected client_id requirement, got %v", err)
	}
	u, err := svc.InviteClient(ctx, RegisterInput{Email: "c@example.com", Password: "password1", ClientID: "client-1"})
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != rbac.RoleClient || u.ClientID != "client-1" {
		t.Errorf("unexpected user: %+v", u)
	}

	me, err := svc.Me(WithActor(ctx, Actor{UserID: u.ID, Role: u.Role}))
	if err != nil || me.Email != "c@example.com" {
		t.Errorf("Me: %+v %v", me, err)
	}
}

func TestActorFrom_DefaultsToSystemAdmin(t *testing.T) {
	a := ActorFrom(context.Background())
	if a.Role != rbac.RoleAdmin || a.IsClient() {
		t.Errorf("unexpected default actor: %+v", a)
	}
}
