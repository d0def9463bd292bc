package rail

import "fmt"

// Orientation кодирует топологию сегмента пути: два прямых варианта,
// четыре восходящих и четыре поворота. Других значений не существует —
// каждому варианту соответствует ровно одна неупорядоченная пара слотов.
type Orientation uint8

const (
	StraightNS Orientation = iota // прямой север-юг
	StraightEW                    // прямой восток-запад
	AscendEast                    // подъём на восток
	AscendWest                    // подъём на запад
	AscendNorth                   // подъём на север
	AscendSouth                   // подъём на юг
	CurveSE                       // поворот юг-восток
	CurveSW                       // поворот юг-запад
	CurveNW                       // поворот север-запад
	CurveNE                       // поворот север-восток

	orientationCount // всегда последняя: число вариантов
)

// slotTable — каноническая пара слотов для каждой ориентации.
// Таблица тотальна и инъективна в обе стороны: никакие две ориентации
// не делят пару, обратный поиск пробует пару и в переставленном порядке.
var slotTable = [orientationCount][2]Direction{
	StraightNS:  {Flat(North), Flat(South)},
	StraightEW:  {Flat(East), Flat(West)},
	AscendEast:  {Ascending(East), Flat(West)},
	AscendWest:  {Ascending(West), Flat(East)},
	AscendNorth: {Ascending(North), Flat(South)},
	AscendSouth: {Ascending(South), Flat(North)},
	CurveSE:     {Flat(South), Flat(East)},
	CurveSW:     {Flat(South), Flat(West)},
	CurveNW:     {Flat(North), Flat(West)},
	CurveNE:     {Flat(North), Flat(East)},
}

// SlotsOf возвращает каноническую пару слотов подключения ориентации
func SlotsOf(o Orientation) [2]Direction {
	if o >= orientationCount {
		panic(fmt.Sprintf("rail: неизвестная ориентация %d", o))
	}
	return slotTable[o]
}

// OrientationOf ищет ориентацию по паре слотов. Пара пробуется как есть
// и в переставленном порядке: порядок вставки вызывающим не гарантирован.
// Отсутствие совпадения — нормальный ответ для произвольной пары.
func OrientationOf(a, b Direction) (Orientation, bool) {
	for o, pair := range slotTable {
		if (pair[0] == a && pair[1] == b) || (pair[0] == b && pair[1] == a) {
			return Orientation(o), true
		}
	}
	return 0, false
}

// mustOrientationOf — вариант для пар, собранных самим резолвером.
// Такая пара всегда составлена из слотов таблицы, поэтому промах
// означает дефект в построении пары, а не ошибку данных. Продолжать
// с повреждённой ориентацией нельзя.
func mustOrientationOf(a, b Direction) Orientation {
	o, ok := OrientationOf(a, b)
	if !ok {
		panic(fmt.Sprintf("rail: пара слотов (%s, %s) не соответствует ни одной ориентации", a, b))
	}
	return o
}

// Valid сообщает, является ли значение допустимой ориентацией
func (o Orientation) Valid() bool {
	return o < orientationCount
}

// IsAscending сообщает, содержит ли ориентация восходящий слот
func (o Orientation) IsAscending() bool {
	_, ok := o.AscendCardinal()
	return ok
}

// AscendCardinal возвращает направление подъёма восходящей ориентации
func (o Orientation) AscendCardinal() (Cardinal, bool) {
	for _, d := range SlotsOf(o) {
		if d.Ascend {
			return d.Card, true
		}
	}
	return 0, false
}

// String возвращает строковое представление ориентации
func (o Orientation) String() string {
	switch o {
	case StraightNS:
		return "straight_ns"
	case StraightEW:
		return "straight_ew"
	case AscendEast:
		return "ascend_east"
	case AscendWest:
		return "ascend_west"
	case AscendNorth:
		return "ascend_north"
	case AscendSouth:
		return "ascend_south"
	case CurveSE:
		return "curve_se"
	case CurveSW:
		return "curve_sw"
	case CurveNW:
		return "curve_nw"
	case CurveNE:
		return "curve_ne"
	default:
		return "invalid"
	}
}
