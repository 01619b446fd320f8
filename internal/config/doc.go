// Package config provides centralized configuration management for the
// license server. It loads values from environment variables and an optional
// YAML file and validates them before the application starts.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (config.yaml, configs/config.yaml or QAJA_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern QAJA_<SECTION>_<FIELD>:
//
//	QAJA_SERVER_PORT=3000
//	QAJA_STORAGE_DRIVER=redis
//	QAJA_BACKUP_SCHEDULE=@daily
//	QAJA_BACKUP_S3_BUCKET=pos-backups
//	QAJA_SECURITY_ADMIN_KEY_HASHES=$2a$10$...
//
// QAJA_DATABASE_BACKUP is read verbatim and holds a base64 encoded license
// document used to seed an empty store.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests should use config.Default() which requires no environment.
package config
