package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/hrops/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByFirebaseUID(firebaseUID string) (*models.User, error)
	UpdateUser(user *models.User) error
	UpdateFCMToken(id uint, token string) error
	CountUsers() (int64, error)
}

// DirectoryRepository answers the read-only membership questions the
// action pipeline asks while resolving recipients.
type DirectoryRepository interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
	AdminIDs(ctx context.Context, excludeID uint) ([]uint, error)
	ActiveUserIDs(ctx context.Context, excludeID uint) ([]uint, error)
	TeamMemberIDs(ctx context.Context, teamID uint) ([]uint, error)
	DepartmentTeamIDs(ctx context.Context, departmentID uint) ([]uint, error)
}

// PostgresUserRepository implements UserRepository and DirectoryRepository
// on top of GORM (PostgreSQL in production, SQLite for local runs).
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user
func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a user by ID
func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (r *PostgresUserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByFirebaseUID retrieves a user by Firebase UID
func (r *PostgresUserRepository) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser updates an existing user
func (r *PostgresUserRepository) UpdateUser(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateFCMToken stores the push token of a device
func (r *PostgresUserRepository) UpdateFCMToken(id uint, token string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("fcm_token", token).Error
}

// CountUsers is used to promote the very first account to admin
func (r *PostgresUserRepository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// FindUser returns ErrUserNotFound when the user does not exist.
func (r *PostgresUserRepository) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) AdminIDs(ctx context.Context, excludeID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND id <> ?", models.RoleAdmin, excludeID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *PostgresUserRepository) ActiveUserIDs(ctx context.Context, excludeID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ? AND id <> ?", true, excludeID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// TeamMemberIDs returns an empty slice for a team that does not exist.
func (r *PostgresUserRepository) TeamMemberIDs(ctx context.Context, teamID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("team_members").
		Where("team_id = ?", teamID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// DepartmentTeamIDs returns an empty slice for a department that does not exist.
func (r *PostgresUserRepository) DepartmentTeamIDs(ctx context.Context, departmentID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Team{}).
		Where("department_id = ?", departmentID).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
