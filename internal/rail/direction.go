package rail

import (
	"github.com/annel0/railverse/internal/vec"
)

// Cardinal определяет одно из четырёх горизонтальных направлений сетки.
// Север = -Z, юг = +Z, запад = -X, восток = +X.
type Cardinal uint8

const (
	North Cardinal = iota
	South
	West
	East
)

// Reverse возвращает противоположное направление
func (c Cardinal) Reverse() Cardinal {
	switch c {
	case North:
		return South
	case South:
		return North
	case West:
		return East
	default:
		return West
	}
}

// Offset возвращает смещение на один блок в данном направлении
func (c Cardinal) Offset() vec.Vec3 {
	switch c {
	case North:
		return vec.Vec3{Z: -1}
	case South:
		return vec.Vec3{Z: 1}
	case West:
		return vec.Vec3{X: -1}
	default:
		return vec.Vec3{X: 1}
	}
}

// String возвращает строковое представление направления
func (c Cardinal) String() string {
	switch c {
	case North:
		return "north"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "east"
	}
}

// Direction описывает слот подключения сегмента: горизонтальное направление
// плюс ортогональный признак подъёма. Подъём означает, что связь продолжается
// на один блок выше в этом направлении (4 плоских + 4 восходящих = 8 значений).
type Direction struct {
	Card   Cardinal
	Ascend bool
}

// Flat создаёт плоское направление
func Flat(c Cardinal) Direction {
	return Direction{Card: c}
}

// Ascending создаёт восходящее направление
func Ascending(c Cardinal) Direction {
	return Direction{Card: c, Ascend: true}
}

// Reverse возвращает обратное направление. Признак подъёма при этом
// сбрасывается: обратной стороной восходящей связи считается её
// горизонтальная составляющая.
func (d Direction) Reverse() Direction {
	return Direction{Card: d.Card.Reverse()}
}

// WithAscend возвращает восходящий вариант того же направления
func (d Direction) WithAscend() Direction {
	return Direction{Card: d.Card, Ascend: true}
}

// Target возвращает координату ячейки, на которую указывает слот:
// горизонтальный сосед, для восходящей связи — его верхний сосед.
func (d Direction) Target(pos vec.Vec3) vec.Vec3 {
	target := pos.Add(d.Card.Offset())
	if d.Ascend {
		target = target.Up()
	}
	return target
}

// String возвращает строковое представление
func (d Direction) String() string {
	if d.Ascend {
		return d.Card.String() + "+up"
	}
	return d.Card.String()
}

// searchOrder задаёт порядок перебора кандидатов при поиске новой связи.
// Порядок значим: сначала все плоские направления, затем восходящие,
// внутри группы — стабильная последовательность North, South, West, East.
// Именно он определяет, как растёт сеть при нескольких равноправных соседях.
var searchOrder = [8]Direction{
	Flat(North), Flat(South), Flat(West), Flat(East),
	Ascending(North), Ascending(South), Ascending(West), Ascending(East),
}
