package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/hrops/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrDepartmentNotFound = errors.New("department not found")
)

// TeamRepository manages departments, teams and team membership
type TeamRepository interface {
	CreateDepartment(ctx context.Context, department *models.Department) error
	GetDepartment(ctx context.Context, id uint) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateTeam(ctx context.Context, team *models.Team, memberIDs []uint) error
	GetTeam(ctx context.Context, id uint) (*models.Team, error)
	AddMembers(ctx context.Context, teamID uint, userIDs []uint) ([]uint, error)
}

// PostgresTeamRepository implements TeamRepository
type PostgresTeamRepository struct {
	db *gorm.DB
}

// NewPostgresTeamRepository creates a new PostgresTeamRepository
func NewPostgresTeamRepository(db *gorm.DB) *PostgresTeamRepository {
	return &PostgresTeamRepository{db: db}
}

func (r *PostgresTeamRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	return r.db.WithContext(ctx).Create(department).Error
}

func (r *PostgresTeamRepository) GetDepartment(ctx context.Context, id uint) (*models.Department, error) {
	var department models.Department
	err := r.db.WithContext(ctx).Preload("Teams").First(&department, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDepartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *PostgresTeamRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments := []models.Department{}
	err := r.db.WithContext(ctx).Preload("Teams").Order("id").Find(&departments).Error
	return departments, err
}

// CreateTeam rejects a department ID that does not exist. Unknown member
// IDs are ignored; team.Members holds the members actually added.
func (r *PostgresTeamRepository) CreateTeam(ctx context.Context, team *models.Team, memberIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if team.DepartmentID != nil {
			var count int64
			if err := tx.Model(&models.Department{}).Where("id = ?", *team.DepartmentID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrDepartmentNotFound
			}
		}
		team.Members = nil
		if err := tx.Omit(clause.Associations).Create(team).Error; err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return nil
		}
		var members []models.User
		if err := tx.Where("id IN ?", memberIDs).Order("id").Find(&members).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		if err := tx.Model(team).Omit("Members.*").Association("Members").Append(members); err != nil {
			return err
		}
		team.Members = members
		return nil
	})
}

func (r *PostgresTeamRepository) GetTeam(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	err := r.db.WithContext(ctx).Preload("Members").First(&team, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// AddMembers adds the given users and returns the IDs that were not
// already members. Unknown user IDs are ignored.
func (r *PostgresTeamRepository) AddMembers(ctx context.Context, teamID uint, userIDs []uint) ([]uint, error) {
	added := []uint{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		var existing []uint
		if err := tx.Table("team_members").Where("team_id = ?", teamID).Pluck("user_id", &existing).Error; err != nil {
			return err
		}
		isMember := make(map[uint]bool, len(existing))
		for _, id := range existing {
			isMember[id] = true
		}

		var users []models.User
		if err := tx.Where("id IN ?", userIDs).Order("id").Find(&users).Error; err != nil {
			return err
		}
		var fresh []models.User
		for _, u := range users {
			if !isMember[u.ID] {
				fresh = append(fresh, u)
				added = append(added, u.ID)
			}
		}
		if len(fresh) == 0 {
			return nil
		}
		return tx.Model(&team).Omit("Members.*").Association("Members").Append(fresh)
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}
