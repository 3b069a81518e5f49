package application

import "time"

func SetStoreClock(s StoreService, now func() time.Time) { s.(*storeService).now = now }

func SetResetClock(s PasswordResetService, now func() time.Time) {
	s.(*passwordResetService).now = now
}
