// Lazy traversal of the course tree.
//
// Each iterator re-reads from the Reader every time it is ranged over;
// nothing is cached between runs. Entities are yielded in the order the
// index or unit lists them. A read or validation failure is yielded once
// as the error value and ends the sequence. Callers can break early.
package cartridge

import "iter"

// Units yields every unit listed in index.json, in index order.
func Units(r Reader) iter.Seq2[*Unit, error] {
	return func(yield func(*Unit, error) bool) {
		idx, err := ReadIndex(r)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, ref := range idx.Units {
			u, err := ReadUnit(r, ref.Path)
			if !yield(u, err) || err != nil {
				return
			}
		}
	}
}

// UnitLessons yields every lesson of u, in unit order.
func UnitLessons(r Reader, u *Unit) iter.Seq2[*Lesson, error] {
	return func(yield func(*Lesson, error) bool) {
		for _, ref := range u.Lessons {
			l, err := ReadLesson(r, ref.Path)
			if !yield(l, err) || err != nil {
				return
			}
		}
	}
}

// LessonResources yields the resources of lesson in stored order. The
// lesson file is re-read on every run rather than trusting lesson's copy.
func LessonResources(r Reader, lesson *Lesson) iter.Seq2[Resource, error] {
	return func(yield func(Resource, error) bool) {
		l, err := ReadLesson(r, lessonPath(lesson.UnitID, lesson.ID))
		if err != nil {
			yield(Resource{}, err)
			return
		}
		for _, res := range l.Resources {
			if !yield(res, nil) {
				return
			}
		}
	}
}
