// Package testutil provides shared helpers for service and store tests.
package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/requestcontext"
)

// FixedNow is the clock used by service tests unless a test sets its own.
var FixedNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

// Context returns a context carrying a fixed clock and a modifying identity.
func Context(now time.Time, userID id.UserID) context.Context {
	ctx := requestcontext.WithTime(context.Background(), now)
	return requestcontext.WithUserID(ctx, userID)
}

// AdminContext returns a context at FixedNow acting as a fresh user.
func AdminContext() (context.Context, id.UserID) {
	userID := id.UserID(uuid.New())
	return Context(FixedNow, userID), userID
}
