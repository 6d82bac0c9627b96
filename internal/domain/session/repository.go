package session

import (
	"gorm.io/gorm"
)

// Repository persists login sessions
type Repository interface {
	Create(sess *Session) error
	FindByToken(token string) (*Session, error)
	Invalidate(token string) (*Session, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new session repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

func (r *repository) Create(sess *Session) error {
	return r.db.Create(sess).Error
}

// FindByToken returns the session row regardless of its state; deciding what
// a revoked or expired row means is the service's job.
func (r *repository) FindByToken(token string) (*Session, error) {
	var sess Session
	if err := r.db.Where("session_token = ?", token).First(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

// Invalidate flips the session inactive and returns the row. Idempotent:
// re-invalidating an already inactive session still succeeds; a token that
// never existed surfaces gorm.ErrRecordNotFound.
func (r *repository) Invalidate(token string) (*Session, error) {
	var sess Session
	if err := r.db.Where("session_token = ?", token).First(&sess).Error; err != nil {
		return nil, err
	}

	if !sess.IsActive {
		return &sess, nil
	}

	err := r.db.Model(&Session{}).
		Where("session_token = ?", token).
		Update("is_active", false).Error
	if err != nil {
		return nil, err
	}
	sess.IsActive = false
	return &sess, nil
}
