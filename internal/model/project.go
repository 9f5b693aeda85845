package model

import "time"

// Project owns the field catalog, the imported records and the dedup
// switch. The processing core only ever reads it.
type Project struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	DedupEnabled bool      `json:"dedup_enabled" db:"dedup_enabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AIEndpoint is one stored chat-completion endpoint configuration. The
// one flagged default is used when a start request names none.
type AIEndpoint struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	APIURL      string    `json:"api_url" db:"api_url"`
	ModelName   string    `json:"model_name" db:"model_name"`
	APIKey      string    `json:"-" db:"api_key"`
	Temperature float64   `json:"temperature" db:"temperature"`
	MaxTokens   int       `json:"max_tokens" db:"max_tokens"`
	IsDefault   bool      `json:"is_default" db:"is_default"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
