// Typed accessors over a Reader.
//
// Structural files (index, units, lessons, integrity) are decoded strictly
// and validated. Content blobs are returned raw or merely parsed: their
// shape belongs to whoever produced them, not to the archive format.
package cartridge

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// decodeFile reads and strictly decodes a structural file. Malformed JSON
// is reported as a schema error against that path.
func decodeFile(r Reader, path string, v any) error {
	data, err := r.ReadBytes(path)
	if err != nil {
		return err
	}
	if err := decodeStrict(data, v); err != nil {
		return &SchemaError{Subject: path, Violations: []Violation{{Message: err.Error()}}}
	}
	return nil
}

// ReadIndex reads and validates index.json.
func ReadIndex(r Reader) (*Index, error) {
	var idx Index
	if err := decodeFile(r, IndexPath, &idx); err != nil {
		return nil, err
	}
	if err := validateIndex(&idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// ReadUnit reads and validates the unit file at path.
func ReadUnit(r Reader, path string) (*Unit, error) {
	var u Unit
	if err := decodeFile(r, path, &u); err != nil {
		return nil, err
	}
	if err := validateUnit(path, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ReadLesson reads and validates the lesson file at path.
func ReadLesson(r Reader, path string) (*Lesson, error) {
	var l Lesson
	if err := decodeFile(r, path, &l); err != nil {
		return nil, err
	}
	if err := validateLesson(path, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ReadIntegrity reads and validates integrity.json.
func ReadIntegrity(r Reader) (*Integrity, error) {
	var m Integrity
	if err := decodeFile(r, IntegrityPath, &m); err != nil {
		return nil, err
	}
	if err := validateManifest(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadArticleContent returns article HTML as stored.
func ReadArticleContent(r Reader, path string) (string, error) {
	return r.ReadText(path)
}

// ReadQuestionXML returns compiled question XML as stored.
func ReadQuestionXML(r Reader, path string) (string, error) {
	return r.ReadText(path)
}

// ReadQuestionJSON parses a question's structured JSON.
func ReadQuestionJSON(r Reader, path string) (map[string]any, error) {
	return readObject(r, path)
}

// ReadVideoMetadata parses a video's metadata JSON.
func ReadVideoMetadata(r Reader, path string) (map[string]any, error) {
	return readObject(r, path)
}

func readObject(r Reader, path string) (map[string]any, error) {
	data, err := r.ReadBytes(path)
	if err != nil {
		return nil, err
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
