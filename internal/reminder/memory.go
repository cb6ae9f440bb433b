package reminder

import (
	"context"
	"sync"
)

// MemoryRegistry хранит ключи в памяти процесса. После перезапуска
// состояние теряется, и напоминание может уйти повторно в тот же день.
type MemoryRegistry struct {
	mu   sync.Mutex
	sent map[Key]struct{}
}

// NewMemoryRegistry создает пустой реестр.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sent: make(map[Key]struct{})}
}

func (r *MemoryRegistry) HasSent(_ context.Context, key Key) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sent[key]
	return ok, nil
}

func (r *MemoryRegistry) MarkSent(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent[key] = struct{}{}
	return nil
}

func (r *MemoryRegistry) ResetAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = make(map[Key]struct{})
	return nil
}

// Len возвращает количество помеченных ключей.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}
