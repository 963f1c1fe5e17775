package settings

import (
	"sync"

	"gorm.io/gorm"
)

// Store caches the settings row in memory. Reads take an RLock, so
// hot paths (every checkout, every earning split) never touch the
// database. Admin updates go through Update which writes and swaps
// the cache atomically; Reload re-reads after out-of-band changes.
type Store struct {
	db *gorm.DB

	mu      sync.RWMutex
	current PlatformSettings
}

// NewStore loads the settings row, creating it with defaults on first
// boot.
func NewStore(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}

	var row PlatformSettings
	err := db.Where(PlatformSettings{ID: 1}).
		Attrs(PlatformSettings{
			CommissionRate:         20,
			MinimumPayout:          500000,
			PayoutRequiresApproval: true,
			DefaultCurrency:        "IDR",
			EnableSubscriptions:    true,
			EnableOneTimePurchase:  true,
			EnableFreeCourses:      true,
			OrderExpiryHours:       24,
		}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	s.current = row
	return s, nil
}

// Current returns a copy of the cached settings.
func (s *Store) Current() PlatformSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the row from the database.
func (s *Store) Reload() error {
	var row PlatformSettings
	if err := s.db.First(&row, 1).Error; err != nil {
		return err
	}
	s.mu.Lock()
	s.current = row
	s.mu.Unlock()
	return nil
}

// Update persists the given settings (forced onto pk 1) and refreshes
// the cache.
func (s *Store) Update(next PlatformSettings) error {
	next.ID = 1
	if err := s.db.Save(&next).Error; err != nil {
		return err
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}
