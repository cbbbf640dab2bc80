// Package policy checks content-level rules that the archive format itself
// does not own: what article HTML may contain, which keys video metadata must
// carry, and whether stored unit counts still agree with the lesson tree.
//
// It is a pure consumer of the cartridge read API. Structural failures
// (an unreadable index, unit or lesson) end the walk with an error; content
// problems are collected as findings so that one run reports all of them.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/jpl-au/cartridge"
)

// Rule names reported in findings.
const (
	RuleForbiddenTag = "forbidden-tag"
	RuleVideoField   = "video-field"
	RuleCounts       = "counts"
	RuleUnreadable   = "unreadable"
)

// Policy selects the rules to apply. The zero value checks nothing.
type Policy struct {
	ForbiddenTags []string // lowercase tag names, without brackets
	VideoFields   []string // keys required in every video metadata document
	CheckCounts   bool
}

// Finding is one policy violation.
type Finding struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s", f.Path, f.Rule, f.Message)
}

// Check walks every unit, lesson and resource of r in archive order and
// returns the findings.
func Check(r cartridge.Reader, p Policy) ([]Finding, error) {
	c := &checker{r: r, policy: p}
	for u, err := range cartridge.Units(r) {
		if err != nil {
			return nil, err
		}
		if err := c.unit(u); err != nil {
			return nil, err
		}
	}
	return c.findings, nil
}

type checker struct {
	r        cartridge.Reader
	policy   Policy
	findings []Finding
}

func (c *checker) add(path, rule, format string, args ...any) {
	c.findings = append(c.findings, Finding{Path: path, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) unit(u *cartridge.Unit) error {
	var got cartridge.Counts
	for l, err := range cartridge.UnitLessons(c.r, u) {
		if err != nil {
			return err
		}
		got.LessonCount++
		for res, err := range cartridge.LessonResources(c.r, l) {
			if err != nil {
				return err
			}
			got.ResourceCount++
			switch res.Type {
			case cartridge.TypeArticle:
				c.article(res.Path)
			case cartridge.TypeVideo:
				c.video(res.Path)
			case cartridge.TypeQuiz:
				got.QuestionCount += len(res.Questions)
			}
		}
	}
	if u.UnitTest != nil {
		got.QuestionCount += len(u.UnitTest.Questions)
	}
	if c.policy.CheckCounts && got != u.Counts {
		c.add("units/"+u.ID+".json", RuleCounts, "stored %+v, lesson tree has %+v", u.Counts, got)
	}
	return nil
}

func (c *checker) article(path string) {
	if len(c.policy.ForbiddenTags) == 0 {
		return
	}
	doc, err := cartridge.ReadArticleContent(c.r, path)
	if err != nil {
		c.unreadable(path, err)
		return
	}
	counts := tagCounts(doc)
	for _, tag := range c.policy.ForbiddenTags {
		if n := counts[tag]; n > 0 {
			c.add(path, RuleForbiddenTag, "<%s> appears %d time(s)", tag, n)
		}
	}
}

func (c *checker) video(path string) {
	if len(c.policy.VideoFields) == 0 {
		return
	}
	meta, err := cartridge.ReadVideoMetadata(c.r, path)
	if err != nil {
		c.unreadable(path, err)
		return
	}
	var missing []string
	for _, key := range c.policy.VideoFields {
		if v, ok := meta[key]; !ok || v == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		c.add(path, RuleVideoField, "missing %s", strings.Join(missing, ", "))
	}
}

func (c *checker) unreadable(path string, err error) {
	if errors.Is(err, cartridge.ErrNotFound) {
		c.add(path, RuleUnreadable, "not in archive")
		return
	}
	c.add(path, RuleUnreadable, "%v", err)
}

// tagCounts tallies start and self-closing tags by lowercase name. Text,
// comments, attribute values and script bodies are not markup and are
// never counted.
func tagCounts(doc string) map[string]int {
	counts := make(map[string]int)
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return counts
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			counts[string(name)]++
		}
	}
}
