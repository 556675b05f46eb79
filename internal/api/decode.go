package api

import (
	"encoding/json"
	"fmt"
	"time"

	"nureschedule/internal/model"
)

// The upstream API has shipped two response generations. The legacy shape is
// a flat array of lesson records with startTime/endTime unix fields. The v2
// shape wraps the same array in a {success, data, message, error} envelope
// and renames the time fields to startedAt/endedAt. Both generations exist in
// the wild depending on the deployment, so the adapter sniffs the shape and
// normalizes either one into []model.RawLessonRecord.

// DecodeError reports the first structurally required field that could not
// be resolved while decoding a lesson record.
type DecodeError struct {
	Field string
	Index int // position of the offending record in the payload
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("schedule decode: record %d: missing required field %q", e.Index, e.Field)
}

// envelope is the v2 response wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type rawSubject struct {
	ID    *int64  `json:"id"`
	Title *string `json:"title"`
	Name  *string `json:"name"`
	Brief *string `json:"brief"`
}

type rawTeacher struct {
	ID        int64  `json:"id"`
	ShortName string `json:"shortName"`
	FullName  string `json:"fullName"`
}

type rawGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type auditoriumRef struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

// rawRecord covers both generations: legacy records carry startTime/endTime,
// v2 records carry startedAt/endedAt. Pointer fields distinguish absent from
// zero.
type rawRecord struct {
	Subject *rawSubject `json:"subject"`

	StartTime *int64 `json:"startTime"`
	EndTime   *int64 `json:"endTime"`
	StartedAt *int64 `json:"startedAt"`
	EndedAt   *int64 `json:"endedAt"`

	Auditory   *string        `json:"auditory"`
	Auditorium *auditoriumRef `json:"auditorium"`

	Type *string `json:"type"`

	Teachers []rawTeacher `json:"teachers"`
	Groups   []rawGroup   `json:"groups"`
}

// DecodeRecords parses a schedule response body in either API generation and
// either audience mode into uniform raw lesson records. It fails with a
// *DecodeError naming the first required field that could not be resolved.
// Audience mode needs no hint: teacher-mode payloads simply carry no teachers
// array, which normalizes to an empty TeacherNames.
func DecodeRecords(body []byte) ([]model.RawLessonRecord, error) {
	payload := body

	// Shape sniff: a v2 envelope is a JSON object carrying success/data.
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Success != nil || env.Data != nil) {
		if env.Success != nil && !*env.Success {
			msg := env.Error
			if msg == "" {
				msg = env.Message
			}
			return nil, fmt.Errorf("schedule decode: upstream reported failure: %s", msg)
		}
		payload = env.Data
	}

	var raws []rawRecord
	if err := json.Unmarshal(payload, &raws); err != nil {
		return nil, fmt.Errorf("schedule decode: %w", err)
	}

	records := make([]model.RawLessonRecord, 0, len(raws))
	for i, r := range raws {
		rec, err := normalizeRecord(r, i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func normalizeRecord(r rawRecord, idx int) (model.RawLessonRecord, error) {
	var rec model.RawLessonRecord

	if r.Subject == nil || r.Subject.ID == nil {
		return rec, &DecodeError{Field: "subjectId", Index: idx}
	}
	rec.SubjectID = *r.Subject.ID

	// Title falls back from `title` to `name`; only both missing is fatal.
	switch {
	case r.Subject.Title != nil:
		rec.SubjectTitle = *r.Subject.Title
	case r.Subject.Name != nil:
		rec.SubjectTitle = *r.Subject.Name
	default:
		return rec, &DecodeError{Field: "subjectTitle", Index: idx}
	}
	if r.Subject.Brief != nil {
		rec.SubjectBrief = *r.Subject.Brief
	}

	start := firstInt64(r.StartTime, r.StartedAt)
	if start == nil {
		return rec, &DecodeError{Field: "startTime", Index: idx}
	}
	end := firstInt64(r.EndTime, r.EndedAt)
	if end == nil {
		return rec, &DecodeError{Field: "endTime", Index: idx}
	}
	rec.StartTime = time.Unix(*start, 0)
	rec.EndTime = time.Unix(*end, 0)

	if r.Type == nil {
		return rec, &DecodeError{Field: "lessonType", Index: idx}
	}
	rec.LessonType = *r.Type

	// Auditory is never a hard failure: string field, then the v2 object's
	// name, then empty.
	switch {
	case r.Auditory != nil:
		rec.Auditory = *r.Auditory
	case r.Auditorium != nil && r.Auditorium.Name != nil:
		rec.Auditory = *r.Auditorium.Name
	}

	for _, t := range r.Teachers {
		name := t.ShortName
		if name == "" {
			name = t.FullName
		}
		if name != "" {
			rec.TeacherNames = append(rec.TeacherNames, name)
		}
	}
	for _, g := range r.Groups {
		if g.Name != "" {
			rec.GroupNames = append(rec.GroupNames, g.Name)
		}
	}

	return rec, nil
}

func firstInt64(ptrs ...*int64) *int64 {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}
