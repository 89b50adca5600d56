package account

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets an account balance directly when
// using the in-memory store.
func SeedBalance(s Store, id string, balance decimal.Decimal) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if acct, exists := mem.storage[id]; exists {
			acct.Balance = balance
			mem.storage[id] = acct
		}
	}
}
