// Package vaultflow provides the funds-transfer consistency engine shared by
// VaultFlow services: atomic double-entry balance mutation with deterministic
// lock ordering, a policy guardrail layer, request idempotency, and per-actor
// rate limiting.
//
// The root package holds the error taxonomy and configuration surface; the
// moving parts live in subpackages and are wired together by the caller:
//
//	cfg, err := vaultflow.LoadConfig()
//	accounts := account.NewStore(cfg.LockWait)
//	journal := ledger.New()
//	kv := store.NewMemory()
//	engine := transfer.NewEngine(transfer.Deps{
//		Accounts:    accounts,
//		Ledger:      journal,
//		Idempotency: idempotency.NewStore(kv, cfg.ReservationGrace),
//		Guard:       guard.New(cfg.Guard, journal, kv),
//		Limiter:     ratelimit.New(cfg.TransferRate),
//	}, logger)
//
// Transport, authentication, notifications, and rendering are external
// collaborators; they call transfer.Engine.Execute and interpret the returned
// error kinds.
package vaultflow
