package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jpl-au/cartridge"
)

// planFile is the on-disk build plan. Files maps archive paths to source
// files relative to the plan's directory; when it is omitted every
// referenced path is looked up under that directory as-is.
type planFile struct {
	GeneratedAt *time.Time          `json:"generatedAt,omitempty"`
	Generator   cartridge.Generator `json:"generator"`
	Course      cartridge.Course    `json:"course"`
	Units       []planUnit          `json:"units"`
	Files       map[string]string   `json:"files,omitempty"`
}

type planUnit struct {
	ID         string              `json:"id"`
	UnitNumber int                 `json:"unitNumber"`
	Title      string              `json:"title"`
	Lessons    []cartridge.Lesson  `json:"lessons"`
	UnitTest   *cartridge.UnitTest `json:"unitTest,omitempty"`
}

// loadPlan reads a plan file strictly and resolves its sources.
func loadPlan(path string) (*cartridge.FilePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var pf planFile
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}

	fp := &cartridge.FilePlan{
		Outline: cartridge.Outline{
			Generator: pf.Generator,
			Course:    pf.Course,
			Units:     make([]cartridge.UnitPlan, 0, len(pf.Units)),
		},
		Files: make(map[string]string),
	}
	if pf.GeneratedAt != nil {
		fp.GeneratedAt = *pf.GeneratedAt
	}
	for _, u := range pf.Units {
		fp.Units = append(fp.Units, cartridge.UnitPlan{
			ID:         u.ID,
			UnitNumber: u.UnitNumber,
			Title:      u.Title,
			Lessons:    u.Lessons,
			UnitTest:   u.UnitTest,
		})
	}

	base := filepath.Dir(path)
	if pf.Files == nil {
		// Only computed for a structurally valid outline; otherwise the
		// builder reports the schema errors. Absent sources are left out
		// so the builder reports them as missing files.
		if fp.Validate() == nil {
			for _, p := range fp.RequiredPaths() {
				src := filepath.Join(base, filepath.FromSlash(p))
				if info, err := os.Stat(src); err == nil && info.Mode().IsRegular() {
					fp.Files[p] = src
				}
			}
		}
		return fp, nil
	}
	for archivePath, src := range pf.Files {
		if !filepath.IsAbs(src) {
			src = filepath.Join(base, filepath.FromSlash(src))
		}
		fp.Files[archivePath] = src
	}
	return fp, nil
}

// memoryPlan reads every source of fp into memory.
func memoryPlan(fp *cartridge.FilePlan) (*cartridge.Plan, error) {
	p := &cartridge.Plan{Outline: fp.Outline, Files: make(map[string][]byte, len(fp.Files))}
	for archivePath, src := range fp.Files {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", archivePath, err)
		}
		p.Files[archivePath] = data
	}
	return p, nil
}
