package repository

import (
	"context"
	"database/sql"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shorts-worker/entities"
)

type SessionRepository interface {
	FindSessionById(ctx context.Context, id string) (*entities.Session, error)
	UpdateTokens(ctx context.Context, id string, tokens entities.TokenSet) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) SessionRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) FindSessionById(ctx context.Context, id string) (*entities.Session, error) {
	session := &entities.Session{}
	err := r.db.WithContext(ctx).First(session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *repo) UpdateTokens(ctx context.Context, id string, tokens entities.TokenSet) error {
	updates := map[string]interface{}{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"scope":         tokens.Scope,
		"token_type":    tokens.TokenType,
		"token_expiry":  tokens.Expiry,
	}
	err := r.db.WithContext(ctx).Model(&entities.Session{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return err
	}
	return nil
}
