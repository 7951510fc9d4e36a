// Package identity provisions agent identities for OTP-verified phones.
//
// # Overview
//
// Every canonical phone number maps to exactly one Identity plus one Profile
// keyed by the identity id. EnsureAgentIdentity creates both on first use and
// updates them in place afterwards, rotating the temporary password on every
// call. The clear password is only returned to the caller; stores keep a
// bcrypt hash.
//
// # Stores
//
// SQLStore works on postgres and sqlite3 and runs the identity write and the
// profile upsert in one transaction. MemoryStore has no transactions, so the
// provisioner retries a failed profile upsert once before giving up.
//
// # Usage
//
//	p := identity.NewProvisioner(identity.NewSQLStore(db), identity.Options{
//		AliasDomain: "agents.otpgate.internal",
//	})
//	creds, err := p.EnsureAgentIdentity(ctx, "9876543210", "")
//	// creds.Email == "agent.9876543210@agents.otpgate.internal"
//
//	email, err := p.UpdateEmail(ctx, creds.UserID, "real@example.com")
package identity
