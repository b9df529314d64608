package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"RoomFM/model"
)

// ErrDuplicateUser is returned when a username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already exists")

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(user *model.User) (int64, error)
	GetUserByID(id int64) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	UpdateRole(userID int64, role string) error
}

// mysqlUserRepository implements UserRepository for MySQL.
type mysqlUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new mysqlUserRepository.
func NewMySQLUserRepository(db *sql.DB) UserRepository {
	return &mysqlUserRepository{db: db}
}

const userColumns = "id, username, email, password_hash, avatar, role, created_at, updated_at"

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var avatar sql.NullString
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &avatar, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // user not found
		}
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}
	user.Avatar = avatar.String
	return user, nil
}

// CreateUser adds a new user to the database.
func (r *mysqlUserRepository) CreateUser(user *model.User) (int64, error) {
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	query := "INSERT INTO users (username, email, password_hash, avatar, role) VALUES (?, ?, ?, ?, ?)"
	res, err := r.db.Exec(query, user.Username, user.Email, user.PasswordHash, user.Avatar, user.Role)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to execute create user statement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for user: %w", err)
	}
	return id, nil
}

// GetUserByID retrieves a user by their ID.
func (r *mysqlUserRepository) GetUserByID(id int64) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = ?", userColumns)
	return scanUser(r.db.QueryRow(query, id))
}

// GetUserByUsername retrieves a user by their username.
func (r *mysqlUserRepository) GetUserByUsername(username string) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = ?", userColumns)
	return scanUser(r.db.QueryRow(query, username))
}

// GetUserByEmail retrieves a user by their email address.
func (r *mysqlUserRepository) GetUserByEmail(email string) (*model.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = ?", userColumns)
	return scanUser(r.db.QueryRow(query, email))
}

// UpdateRole changes a user's role.
func (r *mysqlUserRepository) UpdateRole(userID int64, role string) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	_, err := r.db.Exec("UPDATE users SET role = ? WHERE id = ?", role, userID)
	if err != nil {
		return fmt.Errorf("failed to update role for user %d: %w", userID, err)
	}
	return nil
}
