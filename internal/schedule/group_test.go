package schedule

import (
	"reflect"
	"testing"
	"time"

	"nureschedule/internal/model"
)

func rec(start, end, subject int64, title, brief, lessonType string) model.RawLessonRecord {
	return model.RawLessonRecord{
		SubjectID:    subject,
		SubjectTitle: title,
		SubjectBrief: brief,
		StartTime:    time.Unix(start, 0),
		EndTime:      time.Unix(end, 0),
		Auditory:     "285",
		LessonType:   lessonType,
		TeacherNames: []string{"Іванов І. І."},
		GroupNames:   []string{"ПЗПІ-23-1"},
	}
}

func TestGroupEmpty(t *testing.T) {
	items := Group(nil, model.ModeGroup)
	if len(items) != 0 {
		t.Fatalf("expected empty schedule, got %d items", len(items))
	}
}

func TestGroupMergesParallelSessions(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
	}

	items := Group(records, model.ModeGroup)
	if len(items) != 1 {
		t.Fatalf("expected 1 merged item, got %d", len(items))
	}
	if got := len(items[0].SubItems); got != 2 {
		t.Fatalf("expected 2 sub-items, got %d", got)
	}
	if items[0].SubItems[0].ID == items[0].SubItems[1].ID {
		t.Errorf("sub-item ids must differ, both %q", items[0].SubItems[0].ID)
	}
}

func TestGroupDoesNotMergeDifferentSubjects(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700000000, 1700003400, 7, "Фізика", "ФІЗ", "Лк"),
	}

	items := Group(records, model.ModeGroup)
	lessons := 0
	for _, it := range items {
		if !it.IsBreak() {
			lessons++
			if len(it.SubItems) != 0 {
				t.Errorf("item %s must not carry sub-items", it.ID)
			}
		}
	}
	if lessons != 2 {
		t.Fatalf("expected 2 plain items, got %d", lessons)
	}
}

func TestGroupInsertsBreakInGap(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700006000, 1700009400, 7, "Фізика", "ФІЗ", "Лк"),
	}

	items := Group(records, model.ModeGroup)
	if len(items) != 3 {
		t.Fatalf("expected lesson, break, lesson; got %d items", len(items))
	}
	br := items[1]
	if !br.IsBreak() {
		t.Fatalf("middle item is not a break: %+v", br)
	}
	if !br.OccursAt.Equal(time.Unix(1700003400, 0)) {
		t.Errorf("break occurs at %v, want end of preceding lesson", br.OccursAt)
	}
	if br.ShortTitle != model.BreakTitle || br.LessonType != model.BreakLessonType {
		t.Errorf("break sentinel values wrong: %q / %q", br.ShortTitle, br.LessonType)
	}
}

func TestGroupNoBreakWhenBackToBack(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700003400, 1700006800, 7, "Фізика", "ФІЗ", "Лк"),
	}

	items := Group(records, model.ModeGroup)
	for _, it := range items {
		if it.IsBreak() {
			t.Fatalf("unexpected break between back-to-back lessons: %+v", it)
		}
	}
}

func TestGroupNoBreakAfterLastLesson(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
	}

	items := Group(records, model.ModeGroup)
	if len(items) != 1 {
		t.Fatalf("expected single item, got %d", len(items))
	}
}

// The full pipeline: a merged pair, then a gap, then a standalone lesson.
func TestGroupRoundTrip(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700010000, 1700013400, 7, "Фізика", "ФІЗ", "Лк"),
	}

	items := Group(records, model.ModeGroup)
	if len(items) != 3 {
		t.Fatalf("expected [merged, break, standalone], got %d items", len(items))
	}

	merged := items[0]
	if merged.IsBreak() || len(merged.SubItems) != 2 {
		t.Fatalf("first item not a 2-member merge: %+v", merged)
	}
	if merged.ID != "1700000000-5" {
		t.Errorf("merged item id = %q", merged.ID)
	}

	br := items[1]
	if !br.IsBreak() {
		t.Fatalf("second item not a break: %+v", br)
	}
	if !br.OccursAt.Equal(time.Unix(1700003400, 0)) {
		t.Errorf("break at %v, want 1700003400", br.OccursAt)
	}

	standalone := items[2]
	if standalone.IsBreak() || len(standalone.SubItems) != 0 {
		t.Fatalf("third item not a plain lesson: %+v", standalone)
	}
	if !standalone.OccursAt.Equal(time.Unix(1700010000, 0)) {
		t.Errorf("standalone at %v", standalone.OccursAt)
	}
}

func TestGroupDeterministic(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700010000, 1700013400, 7, "Фізика", "ФІЗ", "Лк"),
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
		rec(1700000000, 1700003400, 9, "Історія", "ІСТ", "Пз"),
	}

	first := Group(records, model.ModeGroup)
	for i := 0; i < 20; i++ {
		if got := Group(records, model.ModeGroup); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestGroupAudienceLabelPerMode(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Лб"),
	}

	asGroup := Group(records, model.ModeGroup)
	if asGroup[0].TeacherOrGroupLabel != "Іванов І. І." {
		t.Errorf("group mode label = %q, want teacher names", asGroup[0].TeacherOrGroupLabel)
	}

	asTeacher := Group(records, model.ModeTeacher)
	if asTeacher[0].TeacherOrGroupLabel != "ПЗПІ-23-1" {
		t.Errorf("teacher mode label = %q, want group names", asTeacher[0].TeacherOrGroupLabel)
	}
}

func TestGroupColorFollowsLessonType(t *testing.T) {
	records := []model.RawLessonRecord{
		rec(1700000000, 1700003400, 5, "Алгоритми", "АЛГ", "Екз"),
	}

	items := Group(records, model.ModeGroup)
	if items[0].Color != model.ColorRed {
		t.Errorf("exam color = %q, want %q", items[0].Color, model.ColorRed)
	}
}
