package rail

import (
	"testing"

	"github.com/annel0/railverse/internal/vec"
)

// fakeGrid — тестовая сетка: сегменты в map, опора по умолчанию — сплошной
// грунт на уровне Y=-1, переопределяемый точечно.
type fakeGrid struct {
	segments      map[vec.Vec3]*Segment
	solidOverride map[vec.Vec3]bool
	removed       []vec.Vec3
	notified      int // записи ориентации без подавления уведомления
}

func newFakeGrid() *fakeGrid {
	return &fakeGrid{
		segments:      make(map[vec.Vec3]*Segment),
		solidOverride: make(map[vec.Vec3]bool),
	}
}

func (g *fakeGrid) addSegment(pos vec.Vec3, o Orientation, canCurve bool) *Segment {
	seg := &Segment{Pos: pos, Orientation: o, CanCurve: canCurve}
	g.segments[pos] = seg
	return seg
}

func (g *fakeGrid) SegmentAt(pos vec.Vec3) (Segment, bool) {
	if seg, ok := g.segments[pos]; ok {
		return *seg, true
	}
	return Segment{}, false
}

func (g *fakeGrid) IsSolid(pos vec.Vec3) bool {
	if v, ok := g.solidOverride[pos]; ok {
		return v
	}
	return pos.Y == -1
}

func (g *fakeGrid) SetOrientation(pos vec.Vec3, o Orientation, suppressNotify bool) {
	if !suppressNotify {
		g.notified++
	}
	if seg, ok := g.segments[pos]; ok {
		seg.Orientation = o
	}
}

func (g *fakeGrid) RemoveSegment(pos vec.Vec3) {
	delete(g.segments, pos)
	g.removed = append(g.removed, pos)
}

func TestVerifiedConnections(t *testing.T) {
	t.Run("Lone Segment", func(t *testing.T) {
		g := newFakeGrid()
		seg := g.addSegment(vec.Vec3{}, StraightNS, true)

		verified := VerifiedConnections(g, *seg)
		if len(verified) != 0 {
			t.Errorf("У сегмента без соседей не должно быть подтверждённых связей, получено %v", verified)
		}
	})

	t.Run("Mutual Axis Link", func(t *testing.T) {
		g := newFakeGrid()
		seg := g.addSegment(vec.Vec3{}, StraightNS, true)
		g.addSegment(vec.Vec3{Z: -1}, StraightNS, true) // сосед к северу

		verified := VerifiedConnections(g, *seg)
		if len(verified) != 1 || verified[0] != Flat(North) {
			t.Errorf("Ожидалась одна связь на север, получено %v", verified)
		}
	})

	t.Run("Incompatible Neighbor", func(t *testing.T) {
		g := newFakeGrid()
		seg := g.addSegment(vec.Vec3{}, StraightNS, true)
		// Сосед к северу ориентирован восток-запад: его пара не содержит юга
		g.addSegment(vec.Vec3{Z: -1}, StraightEW, true)

		verified := VerifiedConnections(g, *seg)
		if len(verified) != 0 {
			t.Errorf("Перпендикулярный сосед не должен подтверждаться, получено %v", verified)
		}
	})

	t.Run("Ascend Needs Upper Neighbor", func(t *testing.T) {
		g := newFakeGrid()
		seg := g.addSegment(vec.Vec3{}, AscendEast, true)
		// Сегмент на одном уровне к востоку не считается: слот смотрит выше
		g.addSegment(vec.Vec3{X: 1}, StraightEW, true)

		verified := VerifiedConnections(g, *seg)
		if len(verified) != 0 {
			t.Errorf("Подъём без верхнего соседа не подтверждается, получено %v", verified)
		}
	})

	t.Run("Ascend With Upper Neighbor", func(t *testing.T) {
		g := newFakeGrid()
		seg := g.addSegment(vec.Vec3{}, AscendEast, true)
		g.addSegment(vec.Vec3{X: 1, Y: 1}, StraightEW, true)

		verified := VerifiedConnections(g, *seg)
		if len(verified) != 1 || verified[0] != Ascending(East) {
			t.Errorf("Ожидалась восходящая связь на восток, получено %v", verified)
		}
	})
}

func TestCandidateDirections(t *testing.T) {
	t.Run("Saturated", func(t *testing.T) {
		seg := Segment{Orientation: StraightNS, CanCurve: true}
		verified := []Direction{Flat(North), Flat(South)}

		if c := CandidateDirections(seg, verified); len(c) != 0 {
			t.Errorf("У насыщенного сегмента кандидатов быть не должно, получено %v", c)
		}
	})

	t.Run("Unconstrained Universe", func(t *testing.T) {
		seg := Segment{Orientation: StraightNS, CanCurve: true}

		c := CandidateDirections(seg, nil)
		if len(c) != 8 {
			t.Fatalf("Ожидалось 8 кандидатов, получено %d", len(c))
		}
		// Плоские направления идут раньше восходящих
		for i, d := range c {
			if i < 4 && d.Ascend {
				t.Errorf("Кандидат %d (%s) восходящий раньше плоских", i, d)
			}
			if i >= 4 && !d.Ascend {
				t.Errorf("Кандидат %d (%s) плоский после восходящих", i, d)
			}
		}
	})

	t.Run("Ascend Locks Axis", func(t *testing.T) {
		seg := Segment{Orientation: AscendEast, CanCurve: true}
		verified := []Direction{Ascending(East)}

		c := CandidateDirections(seg, verified)
		if len(c) != 1 || c[0] != Flat(West) {
			t.Errorf("Ожидался единственный кандидат - плоский запад, получено %v", c)
		}
	})

	t.Run("Non-Curving", func(t *testing.T) {
		seg := Segment{Orientation: StraightNS, CanCurve: false}
		verified := []Direction{Flat(North)}

		c := CandidateDirections(seg, verified)
		if len(c) != 2 {
			t.Fatalf("Ожидалось не более двух кандидатов, получено %v", c)
		}
		if c[0] != Flat(South) || c[1] != Ascending(South) {
			t.Errorf("Ожидались юг и подъём на юг, получено %v", c)
		}
		for _, d := range c {
			if d.Card == West || d.Card == East {
				t.Errorf("Перпендикулярный кандидат %s недопустим", d)
			}
		}
	})

	t.Run("Flat Link Curving", func(t *testing.T) {
		seg := Segment{Orientation: StraightNS, CanCurve: true}
		verified := []Direction{Flat(South)}

		c := CandidateDirections(seg, verified)
		for _, d := range c {
			if d.Card == South {
				t.Errorf("Разворот назад %s должен быть исключён", d)
			}
			if d.Ascend && d.Card != North {
				t.Errorf("Подъём по чужой оси %s должен быть исключён", d)
			}
		}
		// Повороты на запад и восток остаются доступными
		if !containsDirection(c, Flat(West)) || !containsDirection(c, Flat(East)) {
			t.Errorf("Повороты должны остаться в кандидатах, получено %v", c)
		}
	})
}

func TestUpdateStatePadsSingle(t *testing.T) {
	// Одиночная связь дополняется обратным направлением: путь продолжается прямо
	for _, d := range searchOrder {
		g := newFakeGrid()
		seg := g.addSegment(vec.Vec3{}, StraightNS, true)

		updateState(g, seg, []Direction{d})

		pair := SlotsOf(seg.Orientation)
		if !slotsContain(pair, d) {
			t.Errorf("Пара %v ориентации %s не содержит %s", pair, seg.Orientation, d)
		}
		if !slotsContain(pair, d.Reverse()) {
			t.Errorf("Пара %v ориентации %s не содержит обратного %s", pair, seg.Orientation, d.Reverse())
		}
		if g.notified != 0 {
			t.Error("Запись ориентации не должна порождать уведомление об изменении")
		}
	}
}

func TestChangeReactionCompatibleNeighbors(t *testing.T) {
	// Два прямых сегмента север-юг рядом: связь подтверждается с обеих
	// сторон, ориентации не меняются
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, true)
	other := g.addSegment(vec.Vec3{Z: -1}, StraightNS, true)

	OnNeighborChanged(g, seg)
	OnNeighborChanged(g, other)

	if seg.Orientation != StraightNS || other.Orientation != StraightNS {
		t.Errorf("Ориентации не должны меняться: %s, %s", seg.Orientation, other.Orientation)
	}
	if v := VerifiedConnections(g, *seg); len(v) != 1 || v[0] != Flat(North) {
		t.Errorf("Сегмент должен видеть связь на север, получено %v", v)
	}
	if v := VerifiedConnections(g, *other); len(v) != 1 || v[0] != Flat(South) {
		t.Errorf("Сосед должен видеть связь на юг, получено %v", v)
	}
	if len(g.removed) != 0 {
		t.Error("Ничего не должно удаляться")
	}
}

func TestChangeReactionSupportLost(t *testing.T) {
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, true)
	g.solidOverride[vec.Vec3{Y: -1}] = false // выбиваем опору

	OnNeighborChanged(g, seg)

	if len(g.removed) != 1 || !g.removed[0].Equals(vec.Vec3{}) {
		t.Fatalf("Ожидался запрос на удаление сегмента, получено %v", g.removed)
	}
}

func TestChangeReactionAscendSupportLost(t *testing.T) {
	// Восходящая ориентация дополнительно требует опоры со стороны подъёма
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{Y: 0}, AscendEast, true)
	g.solidOverride[vec.Vec3{X: 1}] = false // ячейка подъёма не опорная

	OnNeighborChanged(g, seg)

	if len(g.removed) != 1 {
		t.Fatalf("Ожидалось удаление из-за потери опоры подъёма, получено %v", g.removed)
	}
}

func TestChangeReactionAscendSupportPresent(t *testing.T) {
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, AscendEast, true)
	g.solidOverride[vec.Vec3{X: 1}] = true // блок, на который опирается подъём

	OnNeighborChanged(g, seg)

	if len(g.removed) != 0 {
		t.Errorf("Сегмент с опорой не должен удаляться, получено %v", g.removed)
	}
}

func TestTryReconnectCommitsCurve(t *testing.T) {
	// Сегмент с подтверждённой связью на юг и свободным соседом на востоке
	// должен зафиксировать поворот юг-восток; сосед получает слот на запад
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, true)
	g.addSegment(vec.Vec3{Z: 1}, StraightNS, true) // южный сосед, даёт verified
	east := g.addSegment(vec.Vec3{X: 1}, StraightEW, true)

	TryReconnect(g, seg)

	if seg.Orientation != CurveSE {
		t.Fatalf("Ожидался поворот юг-восток, получено %s", seg.Orientation)
	}
	if !slotsContain(SlotsOf(east.Orientation), Flat(West)) {
		t.Errorf("Пара восточного соседа %s должна содержать запад", east.Orientation)
	}
}

func TestTryReconnectAscendRoleFlip(t *testing.T) {
	// Прямая ячейка к востоку пуста, но уровнем ниже есть сегмент:
	// подниматься должен сосед, а наш слот остаётся плоским
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightEW, true)
	lower := g.addSegment(vec.Vec3{X: 1, Y: -1}, StraightEW, true)

	TryReconnect(g, seg)

	if seg.Orientation != StraightEW {
		t.Errorf("Собственная ориентация должна остаться плоской, получено %s", seg.Orientation)
	}
	if lower.Orientation != AscendWest {
		t.Errorf("Нижний сосед должен подняться на запад, получено %s", lower.Orientation)
	}
}

func TestTryReconnectSelfAscends(t *testing.T) {
	// Сегмент уровнем выше к востоку: поднимаемся сами
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightEW, true)
	upper := g.addSegment(vec.Vec3{X: 1, Y: 1}, StraightEW, true)

	TryReconnect(g, seg)

	if seg.Orientation != AscendEast {
		t.Errorf("Ожидался подъём на восток, получено %s", seg.Orientation)
	}
	if upper.Orientation != StraightEW {
		t.Errorf("Верхний сосед остаётся плоским, получено %s", upper.Orientation)
	}
}

func TestTryReconnectSkipsSaturatedNeighbor(t *testing.T) {
	// Восточный сосед - поворот с двумя подтверждёнными связями; несмотря на
	// свободную ячейку, новую связь с ним фиксировать нельзя
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, true)
	east := g.addSegment(vec.Vec3{X: 1}, CurveNE, true)
	g.addSegment(vec.Vec3{X: 1, Z: -1}, StraightNS, true)
	g.addSegment(vec.Vec3{X: 2}, StraightEW, true)

	TryReconnect(g, seg)

	if east.Orientation != CurveNE {
		t.Errorf("Насыщенный сосед не должен менять ориентацию, получено %s", east.Orientation)
	}
	if seg.Orientation != StraightNS {
		t.Errorf("Связь с насыщенным соседом не должна фиксироваться, получено %s", seg.Orientation)
	}
}

func TestTryReconnectRigidNeighborIncompatible(t *testing.T) {
	// Усиленный сосед с жёсткой осью север-юг не принимает связь с запада
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightEW, true)
	rigid := g.addSegment(vec.Vec3{X: 1}, StraightNS, false)
	g.addSegment(vec.Vec3{X: 1, Z: 1}, StraightNS, false) // даёт жёсткому соседу связь на юг

	TryReconnect(g, seg)

	if rigid.Orientation != StraightNS {
		t.Errorf("Жёсткий сосед не должен поворачивать, получено %s", rigid.Orientation)
	}
	if seg.Orientation != StraightEW {
		t.Errorf("Связь с несовместимым соседом не должна фиксироваться: %s", seg.Orientation)
	}
}

func TestTryReconnectExhaustionIsNormal(t *testing.T) {
	// Исчерпание кандидатов без фиксации - нормальный исход
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, true)

	TryReconnect(g, seg)

	if seg.Orientation != StraightNS {
		t.Errorf("Ориентация одинокого сегмента не меняется, получено %s", seg.Orientation)
	}
	if len(g.removed) != 0 || g.notified != 0 {
		t.Error("Поиск без фиксации не должен иметь побочных эффектов")
	}
}

func TestTryReconnectNoAscendAfterAscendCommit(t *testing.T) {
	// После фиксации восходящей связи восходящие кандидаты пропускаются
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, true)
	g.addSegment(vec.Vec3{Z: -1, Y: 1}, StraightNS, true) // подъём на север
	g.addSegment(vec.Vec3{Z: 1, Y: 1}, StraightNS, true)  // подъём на юг — недопустим вторым

	TryReconnect(g, seg)

	if seg.Orientation != AscendNorth {
		t.Fatalf("Ожидался подъём на север, получено %s", seg.Orientation)
	}
}

func TestTryReconnectCommitConstrainsRemainingCandidates(t *testing.T) {
	// Плоская фиксация на север должна исключить последующий подъём по
	// перпендикулярной оси: сегмент уровнем выше к западу не связывается,
	// иначе получилась бы пара слотов без ориентации в таблице
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, true)
	g.addSegment(vec.Vec3{Z: -1}, StraightEW, true) // свободный сосед к северу
	// Сегмент уровнем выше к западу: подъём туда недопустим после плоской связи
	west := g.addSegment(vec.Vec3{X: -1, Y: 1}, StraightEW, true)

	TryReconnect(g, seg)

	if seg.Orientation != StraightNS {
		t.Fatalf("Ожидалась прямая север-юг, получено %s", seg.Orientation)
	}
	if west.Orientation != StraightEW {
		t.Errorf("Верхний западный сосед не должен меняться, получено %s", west.Orientation)
	}
	if v := VerifiedConnections(g, *seg); !containsDirection(v, Flat(North)) {
		t.Errorf("Связь на север должна быть зафиксирована, получено %v", v)
	}
}

func TestTryReconnectNonCurvingStaysStraight(t *testing.T) {
	// Жёсткий сегмент без начальных связей: первая фиксация определяет ось,
	// перпендикулярный сосед после неё уже не рассматривается
	g := newFakeGrid()
	seg := g.addSegment(vec.Vec3{}, StraightNS, false)
	g.addSegment(vec.Vec3{Z: -1}, StraightEW, true) // свободный сосед к северу
	// Перпендикулярный сосед к западу
	west := g.addSegment(vec.Vec3{X: -1}, StraightNS, true)

	TryReconnect(g, seg)

	if seg.Orientation != StraightNS {
		t.Fatalf("Жёсткий сегмент не должен поворачивать, получено %s", seg.Orientation)
	}
	if west.Orientation != StraightNS {
		t.Errorf("Западный сосед не должен меняться, получено %s", west.Orientation)
	}
}

func TestCanPlace(t *testing.T) {
	g := newFakeGrid()
	if !CanPlace(g, vec.Vec3{}) {
		t.Error("Установка над сплошным грунтом должна приниматься")
	}
	if CanPlace(g, vec.Vec3{Y: 5}) {
		t.Error("Установка без опоры снизу должна отклоняться")
	}
}
