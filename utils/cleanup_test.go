package utils

import "testing"

// Cleanup helpers must not assume boot order: calling them before the
// database is initialized is a silent no-op, never a crash.
func TestRecordOrphanWithoutDatabase(t *testing.T) {
	RecordOrphan("/uploads/listings/gone.jpg")
	RecordOrphan("")
}
