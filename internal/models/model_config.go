package models

import "time"

// ModelConfig is the single active set of processing preferences.
type ModelConfig struct {
	Model         string    `json:"model"`
	OutputQuality string    `json:"outputQuality"`
	MaxResolution int       `json:"maxResolution"`
	Timeout       int       `json:"timeout"` // seconds
	APIKey        string    `json:"-"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

const (
	DefaultOutputQuality = "high"
	DefaultMaxResolution = 2048
	DefaultTimeout       = 120
)
