package config

import "time"

const (
	// Relay
	DefaultRelayCooldown = 1500 * time.Millisecond
	DeliveryTimeout      = 15 * time.Second

	// Rooms
	RoomIDLength = 8

	// Premium
	DefaultPremiumDuration      = 90 * 24 * time.Hour
	DefaultPremiumSweepInterval = 10 * time.Minute

	// Matcher
	DefaultRematchInterval = 5 * time.Second

	// Reports
	ReportBlockThreshold = 5
	ReportWindow         = 24 * time.Hour
	ReportLogLimit       = 50

	// Moderation
	WordCacheTTL = 10 * time.Minute

	// Oversight
	OversightQueueSize = 256

	// Bot
	UpdateWorkers   = 8
	UpdateTimeout   = 30 * time.Second
	ShutdownTimeout = 30 * time.Second
)

// Regions offered by the profile and search wizards.
var Regions = []string{
	"Africa",
	"Asia",
	"Europe",
	"North America",
	"South America",
	"Oceania",
}

var Genders = []string{"male", "female", "other"}

var Languages = []string{"en", "id"}
