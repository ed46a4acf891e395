package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Outline constraints
	MaxNotesPerOutline int
	MaxOutlineDepth    int
	MaxContentLength   int
	MaxImagesPerNote   int

	// Undo constraints
	UndoHistorySize int

	// Persistence behavior
	AutosaveDebounce time.Duration

	// Drag gesture behavior
	DragSessionExpiry time.Duration

	// Validation settings
	AllowEmptyContent bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNotesPerOutline: 10000,
		MaxOutlineDepth:    64,
		MaxContentLength:   50000,
		MaxImagesPerNote:   20,

		UndoHistorySize: 20,

		AutosaveDebounce: 750 * time.Millisecond,

		DragSessionExpiry: 30 * time.Second,

		AllowEmptyContent: true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxNotesPerOutline = 5000
	config.MaxContentLength = 20000

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxNotesPerOutline = 100000
	config.AutosaveDebounce = 250 * time.Millisecond

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
