// Package carpark records vehicle parking sessions and prices them.
//
// A session opens when a vehicle arrives and closes, exactly once, when it
// leaves. The ledger is the only writer of sessions and the only place a
// stay is priced, so every transport (the HTTP api package, the carpark CLI,
// the Forge extension) goes through it.
//
// # Quick Start
//
//	l := carpark.New(memory.New(),
//	    carpark.WithLogger(slog.Default()),
//	    carpark.WithRate(7.50),
//	)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	sessionID, err := l.RegisterInbound(ctx, "ABC123", time.Time{})
//	...
//	receipt, err := l.Checkout(ctx, sessionID, time.Time{})
//	fmt.Println(receipt.Fee.Amount) // $7.50 after an hour
//
// A zero timestamp means "now" on the ledger's clock.
//
// # Stores
//
// Sessions live behind store.Store. Closing a session is a single
// conditional write in every backend, so two concurrent departures for the
// same session leave exactly one winner and the loser sees ErrAlreadyClosed.
//
//   - store/memory: in-process, for tests and single-node use
//   - store/mongo: MongoDB
//   - store/postgres, store/sqlite: Grove ORM over a caller-supplied *grove.DB
//
// # Pricing
//
// A stay of d whole seconds costs d/3600 times the hourly rate. The raw
// figure is kept on the Fee, and Fee.Amount is that figure rounded half away
// from zero to the currency's minor unit:
//
//	5400s at 7.50/h = 11.25 = USD(1125)
//
// # Errors
//
// Every failure matches exactly one sentinel under errors.Is:
// ErrInvalidInput, ErrNotFound, ErrAlreadyClosed, ErrInvalidDuration,
// ErrInvalidConfiguration or ErrStoreUnavailable. KindOf names the class.
//
// # TypeID
//
// Sessions are identified by TypeIDs:
//
//	sess_01h2xcejqtf2nbrexx3vqjhp41
//
// They are K-sortable, so listing open sessions by id lists them in
// creation order.
package carpark
