package role

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrRoleNotFound is returned when a role name has no row in the role table
	ErrRoleNotFound = errors.New("role not found")
)

// Repository defines the interface for role persistence
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SeedDefaults() error
	FindByName(name Name) (*Role, error)
	ListAll() ([]Role, error)
	ListForUser(userID uint) ([]Role, error)
	NamesForUser(userID uint) ([]Name, error)
	HasRole(userID uint, name Name) (bool, error)
	Assign(userID uint, name Name, assignedBy *uint) error
	Remove(userID uint, name Name) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new role repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// SeedDefaults inserts the fixed role set iff the role table is empty.
// Roles are never created dynamically after this.
func (r *repository) SeedDefaults() error {
	var count int64
	if err := r.db.Model(&Role{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	roles := make([]Role, 0, len(All))
	for _, n := range All {
		roles = append(roles, Role{
			Name:        string(n),
			Description: Descriptions[n],
		})
	}
	return r.db.Create(&roles).Error
}

func (r *repository) FindByName(name Name) (*Role, error) {
	var role Role
	if err := r.db.Where("name = ?", string(name)).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *repository) ListAll() ([]Role, error) {
	var roles []Role
	if err := r.db.Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repository) ListForUser(userID uint) ([]Role, error) {
	var roles []Role
	err := r.db.
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// NamesForUser returns the role names held by a user
func (r *repository) NamesForUser(userID uint) ([]Name, error) {
	roles, err := r.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	names := make([]Name, 0, len(roles))
	for _, ro := range roles {
		if n, ok := Parse(ro.Name); ok {
			names = append(names, n)
		}
	}
	return names, nil
}

func (r *repository) HasRole(userID uint, name Name) (bool, error) {
	var count int64
	err := r.db.Model(&UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, string(name)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Assign grants a role to a user. Assigning a role the user already holds is
// a success and leaves the existing row untouched; a concurrent duplicate
// insert is absorbed through the (user_id, role_id) unique index.
func (r *repository) Assign(userID uint, name Name, assignedBy *uint) error {
	role, err := r.FindByName(name)
	if err != nil {
		return err
	}

	has, err := r.HasRole(userID, name)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	ur := &UserRole{
		UserID:     userID,
		RoleID:     role.ID,
		AssignedBy: assignedBy,
	}
	if err := r.db.Create(ur).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}

// Remove revokes a role from a user. Returns false when the user did not
// hold the role.
func (r *repository) Remove(userID uint, name Name) (bool, error) {
	role, err := r.FindByName(name)
	if err != nil {
		return false, err
	}

	res := r.db.Where("user_id = ? AND role_id = ?", userID, role.ID).Delete(&UserRole{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
