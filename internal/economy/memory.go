package economy

import "sync"

// MemoryBank is an in-process implementation of all three backends, used by
// the mock host and in tests.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[uint64]float64
	points   map[uint64]int
	items    map[uint64]map[string]int
}

func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances: make(map[uint64]float64),
		points:   make(map[uint64]int),
		items:    make(map[uint64]map[string]int),
	}
}

func (b *MemoryBank) Deposit(id uint64, amount float64) {
	b.mu.Lock()
	b.balances[id] += amount
	b.mu.Unlock()
}

func (b *MemoryBank) Balance(id uint64) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[id], nil
}

func (b *MemoryBank) Withdraw(id uint64, amount float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[id] < amount {
		return ErrInsufficientFunds
	}
	b.balances[id] -= amount
	return nil
}

func (b *MemoryBank) GrantPoints(id uint64, amount int) {
	b.mu.Lock()
	b.points[id] += amount
	b.mu.Unlock()
}

func (b *MemoryBank) TakePoints(id uint64, amount int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.points[id] < amount {
		return false, nil
	}
	b.points[id] -= amount
	return true, nil
}

func (b *MemoryBank) GiveItem(id uint64, item string, amount int) {
	b.mu.Lock()
	if b.items[id] == nil {
		b.items[id] = make(map[string]int)
	}
	b.items[id][item] += amount
	b.mu.Unlock()
}

func (b *MemoryBank) Count(id uint64, item string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items[id][item], nil
}

func (b *MemoryBank) Consume(id uint64, item string, amount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.items[id][item] < amount {
		return ErrInsufficientItems
	}
	b.items[id][item] -= amount
	return nil
}
