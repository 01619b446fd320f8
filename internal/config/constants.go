package config

import "time"

// Application constants for the QAJA license server
const (
	// Application Info
	AppName    = "QAJA POS License Server"
	AppVersion = "1.0.0"
	AppVendor  = "QAJA"

	// Backup document format version
	BackupFormatVersion = "1.0"

	// RestoreConfirmationToken must accompany every restore request
	RestoreConfirmationToken = "RESTORE_CONFIRMED"

	// EnvSeedVariable carries a base64 copy of the license document
	EnvSeedVariable = "QAJA_DATABASE_BACKUP"

	// EnvSeedMinFileSize is the size below which a database file counts as empty
	EnvSeedMinFileSize = 100

	// Storage drivers
	StorageDriverFile  = "file"
	StorageDriverRedis = "redis"

	// Backup download name
	BackupDownloadName = "qaja_licenses_backup.json"

	// Customer export names
	CustomerCSVName  = "qaja_customers.csv"
	CustomerXLSXName = "qaja_customers.xlsx"

	// Reporting defaults
	DefaultExpiringWindowDays = 7
	RecentActivationsLimit    = 10
	UnregisteredPlaceholder   = "No registrado"

	// Notification defaults
	DefaultNotificationType = "email"
	RenewalReminderMessage  = "Recordatorio de renovación de suscripción"

	// Key generation
	KeyGroupCount       = 4
	KeyGroupLength      = 4
	KeyAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	MaxKeyGenerationTry = 10

	// Cache sizing
	SnapshotCacheSize    = 1
	CacheCleanupInterval = time.Minute

	// Backup scheduler
	BackupRunTimeout = 2 * time.Minute
)
