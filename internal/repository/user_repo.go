package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"freelanceos/internal/model"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user and fills in its id.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (email, password_hash, full_name, role, client_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at
	`
	err := r.db.QueryRow(ctx, query, strings.ToLower(u.Email), u.PasswordHash, u.FullName, u.Role, u.ClientID).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: email already registered", ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail returns user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*model.User, error) {
	query := `
		SELECT id::text, email, password_hash, full_name, role, client_id, created_at
		FROM users ` + where

	var u model.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.ClientID, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// MemoryUsers is an in-process UserStore.
type MemoryUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: map[string]*model.User{}}
}

func (m *MemoryUsers) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range m.users {
		if existing.Email == email {
			return fmt.Errorf("%w: email already registered", ErrDuplicate)
		}
	}
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt = time.Now().UTC()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}
