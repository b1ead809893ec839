package domain

import "context"

// Transaction exposes the workspace operations that a persistence
// implementation must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateModule(ModuleInstance) (ModuleInstance, error)
	UpdateModule(id string, mutator func(*ModuleInstance) error) (ModuleInstance, error)
	DeleteModule(id string) error
	Associate(parent Context, childType ModuleType, childID string) (ModuleInstance, error)
	Disassociate(parent Context, childType ModuleType, childID string) (ModuleInstance, error)
	ReorderChildren(parent Context, childType ModuleType, ids []string) (ModuleInstance, error)
	FindModule(id string) (ModuleInstance, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	ListAll() []ModuleInstance
	ListModules(ModuleType) []ModuleInstance
	ListByContext(parent Context, child ModuleType) []ModuleInstance
	FindModule(id string) (ModuleInstance, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetModule(id string) (ModuleInstance, bool)
	ListModules(ModuleType) []ModuleInstance
	ListByContext(parent Context, child ModuleType) []ModuleInstance
	ParentsOf(child ModuleType, childID string) []ModuleInstance
}
