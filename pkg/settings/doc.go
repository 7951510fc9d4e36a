// Package settings holds the process-wide OTP provider configuration.
//
// # Overview
//
// OTPConfig is an immutable snapshot: provider name, mock or live mode,
// credentials, sender id, message template and the send/verify kill switches.
// Manager keeps the current snapshot behind an atomic pointer. Load fetches
// the named record from a Store, merges the fields that are present onto the
// current snapshot and swaps the result in as a whole, so concurrent readers
// never see a half-applied reload.
//
// # Stores
//
//	SQLStore   - JSON value in the app_settings table, keyed by name (default "sms_otp")
//	FileStore  - YAML document on disk, optionally hot-reloaded with Watch
//
// A failed fetch is logged and the previous snapshot stays in effect:
//
//	mgr := settings.NewManager(defaults, settings.NewSQLStore(db, "sms_otp"), logger, metrics)
//	cfg := mgr.Load(ctx) // never fails
package settings
