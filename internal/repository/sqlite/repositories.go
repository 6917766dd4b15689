package sqlite

import "github.com/prn-tf/photoshare/internal/repository"

// NewRepositories builds every SQLite repository on top of db.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		User:    NewUserRepository(db),
		Session: NewSessionRepository(db),
		Image:   NewImageRepository(db),
	}
}
