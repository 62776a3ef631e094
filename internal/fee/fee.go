package fee

import "math"

// MaxRate — максимальная ставка комиссии в промилле. При ставке выше
// комиссия могла бы превысить сумму выплаты.
const MaxRate = 1000

// Calculator вычисляет комиссию платформы с расчётной суммы.
// Ставка задаётся в промилле (десятых долях процента).
type Calculator struct {
	rate int64
}

// NewCalculator создаёт калькулятор с заданной ставкой.
// Ставка вне диапазона 0..1000 обрезается до границ.
func NewCalculator(rate int64) *Calculator {
	if rate < 0 {
		rate = 0
	}
	if rate > MaxRate {
		rate = MaxRate
	}
	return &Calculator{rate: rate}
}

// Rate возвращает ставку в промилле.
func (c *Calculator) Rate() int64 {
	return c.rate
}

// Fee возвращает комиссию платформы: (amount / 1000) * rate.
// Целочисленное деление усекается до умножения, поэтому потеря точности
// всегда в пользу меньшей комиссии. При переполнении умножения комиссия
// деградирует до нуля: расчёт не должен срывать выплату. Со ставкой,
// обрезанной до 1000, произведение q*rate не превышает amount и ветка
// переполнения для int64 недостижима; проверка остаётся страховкой на
// случай изменения ограничения ставки.
func (c *Calculator) Fee(amount int64) int64 {
	if amount <= 0 || c.rate == 0 {
		return 0
	}
	q := amount / 1000
	if q != 0 && q > math.MaxInt64/c.rate {
		return 0
	}
	return q * c.rate
}

// Payout возвращает сумму к выплате после вычета комиссии.
func (c *Calculator) Payout(amount int64) int64 {
	return amount - c.Fee(amount)
}
