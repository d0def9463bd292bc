package rail

import (
	"testing"
)

func TestOrientationRoundTrip(t *testing.T) {
	// Для всех 10 ориентаций обратный поиск по паре слотов должен
	// возвращать исходную ориентацию независимо от порядка пары
	for o := Orientation(0); o < orientationCount; o++ {
		pair := SlotsOf(o)

		got, ok := OrientationOf(pair[0], pair[1])
		if !ok {
			t.Fatalf("Пара слотов %v ориентации %s не найдена в таблице", pair, o)
		}
		if got != o {
			t.Errorf("Ожидалась ориентация %s, получена %s", o, got)
		}

		got, ok = OrientationOf(pair[1], pair[0])
		if !ok {
			t.Fatalf("Переставленная пара слотов %v ориентации %s не найдена", pair, o)
		}
		if got != o {
			t.Errorf("Переставленный порядок: ожидалась %s, получена %s", o, got)
		}
	}
}

func TestOrientationTableInjective(t *testing.T) {
	// Никакие две ориентации не делят одну неупорядоченную пару слотов
	seen := make(map[[2]Direction]Orientation)
	for o := Orientation(0); o < orientationCount; o++ {
		pair := SlotsOf(o)
		key := pair
		if prev, dup := seen[key]; dup {
			t.Errorf("Ориентации %s и %s делят пару %v", prev, o, pair)
		}
		seen[key] = o

		swapped := [2]Direction{pair[1], pair[0]}
		if prev, dup := seen[swapped]; dup {
			t.Errorf("Ориентации %s и %s делят пару %v с точностью до порядка", prev, o, pair)
		}
		seen[swapped] = o
	}
}

func TestOrientationOfUnknownPair(t *testing.T) {
	// Пара, не образующая ни одной ориентации: два восходящих слота
	if o, ok := OrientationOf(Ascending(North), Ascending(South)); ok {
		t.Errorf("Для пары из двух подъёмов неожиданно найдена ориентация %s", o)
	}
}

func TestMustOrientationOfPanics(t *testing.T) {
	// Промах таблицы внутри резолвера - дефект логики, он должен падать
	defer func() {
		if recover() == nil {
			t.Error("Ожидалась паника для пары без ориентации")
		}
	}()
	mustOrientationOf(Ascending(East), Ascending(West))
}

func TestAscendCardinal(t *testing.T) {
	card, ok := AscendNorth.AscendCardinal()
	if !ok || card != North {
		t.Errorf("Ожидался подъём на север, получено (%v, %v)", card, ok)
	}
	if _, ok := StraightEW.AscendCardinal(); ok {
		t.Error("У прямой ориентации не должно быть направления подъёма")
	}
	if CurveNE.IsAscending() {
		t.Error("Поворот не является восходящей ориентацией")
	}
}

func TestDirectionReverseStripsAscend(t *testing.T) {
	rev := Ascending(East).Reverse()
	if rev != Flat(West) {
		t.Errorf("Обратным к подъёму на восток должен быть плоский запад, получено %s", rev)
	}
}
