package config

// Default paths for databases and on-disk caches
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./shelfshare.db"

	// DefaultCoversDir is where proxied cover images are cached
	DefaultCoversDir = "./covers"
)

// Mail providers understood by MAIL_PROVIDER.
const (
	MailProviderLog      = "log"
	MailProviderResend   = "resend"
	MailProviderPostmark = "postmark"
)
