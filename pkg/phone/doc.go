// Package phone converts caller-supplied phone strings into a canonical
// dialable form.
//
// # Overview
//
// Normalize strips every non-digit character and then applies a fixed set of
// rules to produce a "+<digits>" string:
//
//	phone.Normalize("98765 43210", "91")    // "+919876543210"
//	phone.Normalize("09876543210", "91")    // "+919876543210"
//	phone.Normalize("+1 (415) 555-0100", "91") // "+14155550100"
//	phone.Normalize("n/a", "91")            // "" (invalid)
//
// Normalize is pure and idempotent: normalizing a canonical number returns it
// unchanged.
package phone
