package rail

import (
	"github.com/annel0/railverse/internal/vec"
)

// VerifiedConnections возвращает подмножество номинальных слотов сегмента,
// для которых сосед в этом направлении сам является сегментом, чья
// номинальная пара содержит обратное направление. Проверка чисто
// топологическая: занятость слотов соседа здесь не учитывается, её
// отдельно проверяет TryReconnect перед фиксацией. Без побочных эффектов.
func VerifiedConnections(g Grid, seg Segment) []Direction {
	verified := make([]Direction, 0, 2)
	for _, d := range SlotsOf(seg.Orientation) {
		other, ok := g.SegmentAt(d.Target(seg.Pos))
		if !ok {
			continue
		}
		if slotsContain(SlotsOf(other.Orientation), d.Reverse()) {
			verified = append(verified, d)
		}
	}
	return verified
}

// CandidateDirections вычисляет направления, в которых сегмент ещё может
// завести новую связь. Подтверждённые связи сворачиваются как ограничения:
//   - восходящая связь либо неспособность поворачивать жёстко фиксируют ось —
//     остаётся только обратное плоское направление (плюс его восходящий
//     вариант, если ограничивающая связь была плоской), дальнейшие
//     ограничения не рассматриваются;
//   - плоская связь поворачивающего сегмента запрещает разворот назад и
//     подъём по чужой оси.
func CandidateDirections(seg Segment, verified []Direction) []Direction {
	if len(verified) >= 2 {
		return nil // уже насыщен, искать нечего
	}

	candidates := make([]Direction, 0, len(searchOrder))
	candidates = append(candidates, searchOrder[:]...)

	for _, c := range verified {
		if c.Ascend || !seg.CanCurve {
			// Жёсткая ось: у сегмента она может быть только одна
			rev := c.Reverse()
			if c.Ascend {
				return []Direction{rev}
			}
			return []Direction{rev, rev.WithAscend()}
		}

		kept := candidates[:0]
		for _, d := range candidates {
			if d.Card == c.Card {
				continue // не разворачиваемся в уже занятое направление
			}
			if d.Ascend && d.Card != c.Card.Reverse() {
				continue // подъём и поворот по разным осям одновременно запрещены
			}
			kept = append(kept, d)
		}
		candidates = kept
	}
	return candidates
}

// TryReconnect перебирает кандидатов в фиксированном порядке и пытается
// зафиксировать новую взаимную связь с соседним сегментом. Побеждает первый
// подходящий кандидат, отката нет. После каждой фиксации кандидаты
// пересчитываются от уже набранных связей: свежая связь сама становится
// ограничением и сужает остаток перебора, иначе после плоской фиксации мог бы
// пройти подъём по чужой оси, а жёсткий сегмент - собрать поворот. Исчерпание
// кандидатов без фиксации — нормальный исход: висячий конец пути с 0 или 1
// связью допустим.
func TryReconnect(g Grid, seg *Segment) {
	verified := VerifiedConnections(g, *seg)
	if len(verified) >= 2 {
		return
	}

	// Самому подниматься можно, только пока нет восходящей связи
	canSlopeSelf := true
	for _, d := range verified {
		if d.Ascend {
			canSlopeSelf = false
		}
	}

	connections := append(make([]Direction, 0, 2), verified...)
	blacklist := make(map[Direction]bool, 4)

	for len(connections) < 2 {
		committed := false
		for _, d := range CandidateDirections(*seg, connections) {
			if blacklist[d] {
				continue
			}
			if d.Ascend && !canSlopeSelf {
				continue
			}

			other, otherSide, ok := resolveCandidate(g, seg.Pos, d)
			if !ok {
				blacklist[d] = true
				continue
			}

			otherVerified := VerifiedConnections(g, other)
			if len(otherVerified) >= 2 {
				// Сосед уже насыщен
				blacklist[d] = true
				continue
			}
			if !containsDirection(CandidateDirections(other, otherVerified), otherSide) {
				// Топологически несовместим, например жёсткая ось соседа другая
				blacklist[d] = true
				continue
			}

			// Фиксация взаимной связи: сначала сосед, затем мы сами
			updateState(g, &other, append(otherVerified, otherSide))

			connections = append(connections, d)
			blacklist[d] = true
			blacklist[Direction{Card: d.Card, Ascend: !d.Ascend}] = true
			if d.Ascend {
				canSlopeSelf = false
			}
			reconnectCommits.Inc()
			committed = true
			break
		}
		if !committed {
			break
		}
	}

	if len(connections) != len(verified) {
		updateState(g, seg, connections)
	}
}

// resolveCandidate находит сегмент, с которым направление d может связаться.
// Прямое попадание даёт соседу плоский обратный слот. Если прямая ячейка
// пуста, а d плоское, пробуется ячейка уровнем ниже: тогда роли меняются —
// сосед поднимается к нам, наш слот остаётся плоским.
func resolveCandidate(g Grid, pos vec.Vec3, d Direction) (Segment, Direction, bool) {
	target := d.Target(pos)
	if other, ok := g.SegmentAt(target); ok {
		return other, d.Reverse(), true
	}
	if !d.Ascend {
		if other, ok := g.SegmentAt(target.Down()); ok {
			return other, d.Reverse().WithAscend(), true
		}
	}
	return Segment{}, Direction{}, false
}

// updateState записывает ориентацию, соответствующую итоговому набору связей,
// в сегмент и в сетку. Единственная связь дополняется обратным направлением:
// одиночный конец по умолчанию продолжается прямо. Запись идёт с подавлением
// уведомления об изменении — см. Grid.SetOrientation.
func updateState(g Grid, seg *Segment, connections []Direction) {
	a := connections[0]
	b := a.Reverse()
	if len(connections) >= 2 {
		b = connections[1]
	}

	o := mustOrientationOf(a, b)
	seg.Orientation = o
	g.SetOrientation(seg.Pos, o, true)
	orientationWrites.Inc()
}

// OnNeighborChanged — точка входа реакции на изменение окрестности.
// Потеря опоры (снизу, а для восходящих ориентаций и со стороны подъёма)
// завершается запросом на удаление; недосвязанный сегмент пытается
// восстановить связи; насыщенный не делает ничего.
func OnNeighborChanged(g Grid, seg *Segment) {
	if !g.IsSolid(seg.Pos.Down()) {
		g.RemoveSegment(seg.Pos)
		supportRemovals.Inc()
		return
	}
	if card, ok := seg.Orientation.AscendCardinal(); ok {
		if !g.IsSolid(seg.Pos.Add(card.Offset())) {
			g.RemoveSegment(seg.Pos)
			supportRemovals.Inc()
			return
		}
	}
	if len(VerifiedConnections(g, *seg)) < 2 {
		TryReconnect(g, seg)
	}
}

// CanPlace проверяет, допустима ли установка сегмента в указанную ячейку.
// Ориентацию при установке задаёт вызывающий, здесь она не вычисляется.
func CanPlace(g Grid, pos vec.Vec3) bool {
	return g.IsSolid(pos.Down())
}

func slotsContain(pair [2]Direction, d Direction) bool {
	return pair[0] == d || pair[1] == d
}

func containsDirection(dirs []Direction, d Direction) bool {
	for _, c := range dirs {
		if c == d {
			return true
		}
	}
	return false
}
