// Structural types for the files stored in a cartridge.
//
// index.json, units/<unitId>.json, lessons/<unitId>/<lessonId>.json and
// integrity.json are the only files whose shape the archive format owns.
// Their Go types live here. Content blobs (article HTML, question XML and
// JSON, video metadata) are opaque to the format and have no type.
package cartridge

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Version is the only index schema version this package reads or writes.
const Version = 1

// Fixed archive paths.
const (
	IndexPath     = "index.json"
	IntegrityPath = "integrity.json"
	unitsDir      = "units"
	lessonsDir    = "lessons"
)

// Algorithm is the digest recorded in integrity.json.
const Algorithm = "sha256"

// Generator identifies the tool that produced the archive.
type Generator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// Course carries course-level metadata.
type Course struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

// Index is the top-level manifest, read first to discover unit locations.
type Index struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Generator   Generator `json:"generator"`
	Course      Course    `json:"course"`
	Units       []UnitRef `json:"units"`
}

// UnitRef is an index entry pointing at a unit file.
type UnitRef struct {
	ID         string `json:"id"`
	UnitNumber int    `json:"unitNumber"`
	Title      string `json:"title"`
	Path       string `json:"path"`
}

// Unit is stored at units/<unitId>.json. Counts are derived from the
// lesson tree when the archive is written.
type Unit struct {
	ID         string      `json:"id"`
	UnitNumber int         `json:"unitNumber"`
	Title      string      `json:"title"`
	Lessons    []LessonRef `json:"lessons"`
	UnitTest   *UnitTest   `json:"unitTest,omitempty"`
	Counts     Counts      `json:"counts"`
}

// LessonRef is a unit entry pointing at a lesson file.
type LessonRef struct {
	ID           string `json:"id"`
	LessonNumber int    `json:"lessonNumber"`
	Title        string `json:"title"`
	Path         string `json:"path"`
}

// Counts summarises a unit's lesson tree.
type Counts struct {
	LessonCount   int `json:"lessonCount"`
	ResourceCount int `json:"resourceCount"`
	QuestionCount int `json:"questionCount"`
}

// UnitTest is the optional end-of-unit assessment.
type UnitTest struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Path          string        `json:"path"`
	QuestionCount int           `json:"questionCount"`
	Questions     []QuestionRef `json:"questions"`
}

// QuestionRef points at the compiled XML and structured JSON of one question.
type QuestionRef struct {
	Number int    `json:"number"`
	XML    string `json:"xml"`
	JSON   string `json:"json"`
}

// Lesson is stored at lessons/<unitId>/<lessonId>.json.
type Lesson struct {
	ID           string     `json:"id"`
	UnitID       string     `json:"unitId"`
	LessonNumber int        `json:"lessonNumber"`
	Title        string     `json:"title"`
	Resources    []Resource `json:"resources"`
}

// ResourceType discriminates the closed set of lesson resources.
type ResourceType string

const (
	TypeArticle ResourceType = "article"
	TypeQuiz    ResourceType = "quiz"
	TypeVideo   ResourceType = "video"
)

// Resource is one of an article, a quiz or a video. Only the fields of
// its Type are serialised; the others must be left zero.
type Resource struct {
	Type ResourceType
	ID   string

	// article, video
	Path string

	// quiz
	QuestionCount int
	Questions     []QuestionRef

	// video
	YouTubeID       string
	DurationSeconds float64
}

// Article returns an article resource.
func Article(id, path string) Resource {
	return Resource{Type: TypeArticle, ID: id, Path: path}
}

// Quiz returns a quiz resource; QuestionCount is taken from questions.
func Quiz(id string, questions ...QuestionRef) Resource {
	return Resource{Type: TypeQuiz, ID: id, QuestionCount: len(questions), Questions: questions}
}

// Video returns a video resource whose metadata JSON lives at path.
func Video(id, path, youtubeID string, durationSeconds float64) Resource {
	return Resource{Type: TypeVideo, ID: id, Path: path, YouTubeID: youtubeID, DurationSeconds: durationSeconds}
}

type articleJSON struct {
	Type ResourceType `json:"type"`
	ID   string       `json:"id"`
	Path string       `json:"path"`
}

type quizJSON struct {
	Type          ResourceType  `json:"type"`
	ID            string        `json:"id"`
	QuestionCount int           `json:"questionCount"`
	Questions     []QuestionRef `json:"questions"`
}

type videoJSON struct {
	Type            ResourceType `json:"type"`
	ID              string       `json:"id"`
	Path            string       `json:"path"`
	YouTubeID       string       `json:"youtubeId"`
	DurationSeconds float64      `json:"durationSeconds"`
}

func (r Resource) MarshalJSON() ([]byte, error) {
	switch r.Type {
	case TypeArticle:
		return json.Marshal(articleJSON{r.Type, r.ID, r.Path})
	case TypeQuiz:
		questions := r.Questions
		if questions == nil {
			questions = []QuestionRef{}
		}
		return json.Marshal(quizJSON{r.Type, r.ID, r.QuestionCount, questions})
	case TypeVideo:
		return json.Marshal(videoJSON{r.Type, r.ID, r.Path, r.YouTubeID, r.DurationSeconds})
	default:
		return nil, fmt.Errorf("resource %q: unknown type %q", r.ID, r.Type)
	}
}

// UnmarshalJSON decodes the variant named by "type" and rejects fields
// that do not belong to it.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var discriminator struct {
		Type ResourceType `json:"type"`
	}
	if err := json.Unmarshal(data, &discriminator); err != nil {
		return err
	}
	switch discriminator.Type {
	case TypeArticle:
		var a articleJSON
		if err := decodeStrict(data, &a); err != nil {
			return err
		}
		*r = Resource{Type: a.Type, ID: a.ID, Path: a.Path}
	case TypeQuiz:
		var q quizJSON
		if err := decodeStrict(data, &q); err != nil {
			return err
		}
		*r = Resource{Type: q.Type, ID: q.ID, QuestionCount: q.QuestionCount, Questions: q.Questions}
	case TypeVideo:
		var v videoJSON
		if err := decodeStrict(data, &v); err != nil {
			return err
		}
		*r = Resource{Type: v.Type, ID: v.ID, Path: v.Path, YouTubeID: v.YouTubeID, DurationSeconds: v.DurationSeconds}
	default:
		return fmt.Errorf("unknown resource type %q", discriminator.Type)
	}
	return nil
}

// Integrity is the manifest stored last in every archive.
type Integrity struct {
	Algorithm string                `json:"algorithm"`
	Files     map[string]FileDigest `json:"files"`
}

// FileDigest is the recorded size and hex SHA-256 of one entry.
type FileDigest struct {
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// encodeJSON produces the canonical on-disk form: two-space indentation
// and a trailing newline. Map keys are emitted sorted.
func encodeJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// decodeStrict unmarshals a single JSON value, rejecting unknown fields.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
