package constants

import "time"

const (
	// TeardownDelay is how long game channels survive after a terminal
	// status before deletion.
	TeardownDelay = 60 * time.Second

	VoidVoteWindow     = 30 * time.Second
	CaptainPickTimeout = 30 * time.Second

	StrikeCooldown = 10 * time.Second
)

const (
	StartingElo = 0

	MVPBonusWinner = 10
	MVPBonusLoser  = 5
)

const (
	// Strike totals are clamped to this range; crossing AutoBanThreshold
	// synthesizes a ban, MaxStrikes makes it permanent.
	MinStrikes       = 0
	MaxStrikes       = 25
	AutoBanThreshold = 2
)

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	TeardownTimeout = 15 * time.Second
	NotifyTimeout   = 10 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour

	StoreRetryAttempts = 3
	StoreRetryBackoff  = 100 * time.Millisecond
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	LeaderboardLimit = 10

	// Non-terminal games older than this are auto-voided by the sweeper.
	StaleGameCutoff = 24 * time.Hour
)
