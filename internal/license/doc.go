// Package license issues, activates, validates, renews and deactivates
// point-of-sale license keys.
//
// # Components
//
//	- KeyGenerator: random XXXX-XXXX-XXXX-XXXX keys over [A-Z0-9]
//	- Store: the single license document behind a Backend (file, redis or
//	  memory), with snapshot, restore and integrity checks
//	- Manager: the lifecycle rules run as load-mutate-save cycles on the Store
//	- DocumentCache: short-lived cache of the encoded document for reporting
//	- AttemptGuard: blocks clients that keep validating unknown keys
//
// # Validation
//
// Validation failures are not errors. Validate returns a ValidationResult
// with Success=false and a Code; the returned error is reserved for a store
// that cannot be read or written.
//
// A perpetual license is activated and bound to the caller's hardware id by
// its first successful validation. Later validations from any other hardware
// id fail with HARDWARE_MISMATCH.
//
// A subscription is valid until its expiry. It binds the first non-empty
// hardware id it sees and never compares it again.
//
// # Storage
//
// The Store holds one mutex across every load-mutate-save cycle. A missing
// or undecodable document is replaced by an empty one and logged at ERROR
// with data_loss_risk=true. Restore writes the current document to the
// emergency location before the incoming one is accepted.
//
// # Usage
//
//	store := license.NewStore(license.NewFileBackend(path, emergencyPath))
//	manager := license.NewManager(store)
//
//	created, err := manager.Create(ctx, license.CreateRequest{Type: "suscripcion", Months: 3})
//	result, err := manager.Validate(ctx, license.ValidateRequest{Key: created.Key, HardwareID: "H1"})
package license
