package util

import (
	"github.com/aquilax/go-perlin"
)

// Noise - детерминированный источник шума Перлина для генерации рельефа.
// Экземпляр привязан к сиду и принадлежит конкретному генератору,
// глобального состояния нет.
type Noise struct {
	p *perlin.Perlin
}

// NewNoise создаёт источник шума по сиду мира.
// alpha отвечает за сглаживание, beta - за частоту, октав три.
func NewNoise(seed int64) *Noise {
	return &Noise{p: perlin.NewPerlin(2.0, 2.0, 3, seed)}
}

// At2D возвращает значение шума в точке, приведённое к диапазону [0, 1)
func (n *Noise) At2D(x, y float64) float64 {
	return (n.p.Noise2D(x, y) + 1.0) / 2.0
}
