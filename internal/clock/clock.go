package clock

import "time"

// Clock отдаёт текущее время всем операциям с временны́ми политиками.
// Ядро никогда не читает стеночное время напрямую: это упрощает тесты
// и делает политики детерминированными.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// New возвращает часы, основанные на системном времени.
func New() Clock {
	return systemClock{}
}

// Fixed — часы, возвращающие заранее заданное время. Для тестов.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }
