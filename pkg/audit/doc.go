// Package audit records every OTP send and verify attempt.
//
// # Overview
//
// Each attempt becomes one Attempt row carrying the canonical phone, the
// operation mode, the provider name, the provider request id, the outcome
// and, on failure, the mapped error code and message. The OTP itself is
// never stored; only its last two digits are kept for correlation.
//
// # Writers
//
// DBWriter inserts into the otp_attempts table created by storage.Migrate.
// FileWriter appends NDJSON lines to a rotating audit.log file.
// MultiWriter fans one attempt out to several writers and MemoryWriter keeps
// attempts in memory for tests and local runs.
//
// # Recording
//
// Request handlers never wait on audit storage. A Recorder hands each
// attempt to a bounded worker pool:
//
//	rec := audit.NewRecorder(ctx, writer, audit.RecorderConfig{Workers: 2}, logger, metrics)
//	defer rec.Close(5 * time.Second)
//
//	rec.Record(ctx, audit.Attempt{
//		Phone:  "+919876543210",
//		Mode:   audit.ModeSend,
//		Status: audit.StatusSent,
//	})
//
// Write failures and queue overflows are logged, counted in the
// otpgate_audit_write_failures_total metric and published on Failures().
package audit
