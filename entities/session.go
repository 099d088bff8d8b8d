package entities

import "time"

// Session holds the OAuth credentials of one connected account. The job
// coordinator writes refreshed tokens back here after a successful upload.
type Session struct {
	ID           string    `json:"id" gorm:"type:varchar(64);primary_key"`
	AccessToken  string    `json:"access_token" gorm:"type:text"`
	RefreshToken string    `json:"refresh_token" gorm:"type:text"`
	Scope        string    `json:"scope" gorm:"type:text"`
	TokenType    string    `json:"token_type" gorm:"type:varchar(32)"`
	TokenExpiry  time.Time `json:"token_expiry" gorm:"type:timestamptz"`
	CreatedAt    time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Session) TableName() string {
	return "sessions"
}

// TokenSet is the credential bag passed between the uploader and the
// session store.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Scope        string    `json:"scope"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

func (s *Session) Tokens() TokenSet {
	return TokenSet{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Scope:        s.Scope,
		TokenType:    s.TokenType,
		Expiry:       s.TokenExpiry,
	}
}
