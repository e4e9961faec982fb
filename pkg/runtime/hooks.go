package runtime

import "context"

// Hooks defines lifecycle callbacks for the write helpers. Before hooks run
// after argument validation and may modify the statement; an error aborts
// it before any I/O. After hooks run only when the statement succeeded.
type Hooks interface {
	BeforeInsert(ctx context.Context, stmt *InsertStmt) error
	AfterInsert(ctx context.Context, stmt InsertStmt, id any) error
	BeforeUpdate(ctx context.Context, stmt *UpdateStmt) error
	AfterUpdate(ctx context.Context, stmt UpdateStmt) error
	BeforeDelete(ctx context.Context, stmt *DeleteStmt) error
	AfterDelete(ctx context.Context, stmt DeleteStmt) error
}

// NopHooks implements Hooks with no-ops; embed it to override a subset.
type NopHooks struct{}

func (NopHooks) BeforeInsert(context.Context, *InsertStmt) error    { return nil }
func (NopHooks) AfterInsert(context.Context, InsertStmt, any) error { return nil }
func (NopHooks) BeforeUpdate(context.Context, *UpdateStmt) error    { return nil }
func (NopHooks) AfterUpdate(context.Context, UpdateStmt) error      { return nil }
func (NopHooks) BeforeDelete(context.Context, *DeleteStmt) error    { return nil }
func (NopHooks) AfterDelete(context.Context, DeleteStmt) error      { return nil }
