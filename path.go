// Path and identifier rules.
//
// Every entry name in a cartridge is a POSIX-relative path. Unit and lesson
// ids become path segments (units/<unitId>.json), so they are restricted to
// lowercase slugs. Unit ids come in two disjoint variants: numeric
// (unit-<n>) and non-numeric slugs that cannot be mistaken for one.
package cartridge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numericUnitID = regexp.MustCompile(`^unit-([0-9]+)$`)
	slugID        = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	namedUnitID   = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

// UnitIDKind names the variant a unit id belongs to.
type UnitIDKind int

const (
	UnitIDInvalid UnitIDKind = iota
	UnitIDNumeric
	UnitIDNamed
)

// ClassifyUnitID reports which unit id variant id belongs to. The numeric
// pattern is checked first, so an id is never both.
func ClassifyUnitID(id string) UnitIDKind {
	if m := numericUnitID.FindStringSubmatch(id); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return UnitIDNumeric
		}
		return UnitIDInvalid
	}
	if namedUnitID.MatchString(id) {
		return UnitIDNamed
	}
	return UnitIDInvalid
}

// ValidPath reports whether p is a safe POSIX-relative entry name.
func ValidPath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	case strings.HasPrefix(p, "/"):
		return fmt.Errorf("%w: %q is absolute", ErrInvalidPath, p)
	case strings.Contains(p, `\`):
		return fmt.Errorf("%w: %q contains a backslash", ErrInvalidPath, p)
	case strings.ContainsRune(p, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, p)
		case ".", "..":
			return fmt.Errorf("%w: %q has a %q segment", ErrInvalidPath, p, seg)
		}
	}
	return nil
}

// reserved reports whether p collides with a path the archive format
// writes itself. Content blobs may not use these.
func reserved(p string) bool {
	return p == IndexPath || p == IntegrityPath ||
		strings.HasPrefix(p, unitsDir+"/") || strings.HasPrefix(p, lessonsDir+"/")
}

func unitPath(unitID string) string {
	return unitsDir + "/" + unitID + ".json"
}

func lessonPath(unitID, lessonID string) string {
	return lessonsDir + "/" + unitID + "/" + lessonID + ".json"
}
