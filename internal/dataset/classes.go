package dataset

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Background is the name of class 0.
const Background = "bg"

// ErrEmptyClassTable is returned when a class table would hold only the
// background class.
var ErrEmptyClassTable = errors.New("class table has no foreground classes")

// ClassTable is an immutable name to id lookup.
type ClassTable struct {
	names []string
	ids   map[string]int
}

// NewClassTable builds a table from class names in id order, starting at 1.
// Names are lower-cased and trimmed; a "bg" entry is skipped wherever it
// appears.
func NewClassTable(names []string) (*ClassTable, error) {
	t := &ClassTable{
		names: []string{Background},
		ids:   map[string]int{Background: 0},
	}
	for _, n := range names {
		n = normalizeClass(n)
		if n == Background {
			continue
		}
		if n == "" {
			return nil, errors.New("empty class name")
		}
		if _, dup := t.ids[n]; dup {
			return nil, errors.Errorf("duplicate class %q", n)
		}
		t.ids[n] = len(t.names)
		t.names = append(t.names, n)
	}
	if len(t.names) == 1 {
		return nil, ErrEmptyClassTable
	}
	return t, nil
}

// ID returns the id of name, matched case-insensitively.
func (t *ClassTable) ID(name string) (int, bool) {
	id, ok := t.ids[normalizeClass(name)]
	return id, ok
}

// Name returns the name of id.
func (t *ClassTable) Name(id int) (string, bool) {
	if id < 0 || id >= len(t.names) {
		return "", false
	}
	return t.names[id], true
}

// Len returns the number of classes, background included.
func (t *ClassTable) Len() int { return len(t.names) }

// Names returns a copy of all class names in id order.
func (t *ClassTable) Names() []string {
	return append([]string(nil), t.names...)
}

// Resolve maps class names to ids. Unknown names are reported together.
func (t *ClassTable) Resolve(names []string) ([]int, error) {
	unknown := lo.Filter(names, func(n string, _ int) bool {
		_, ok := t.ID(n)
		return !ok
	})
	if len(unknown) > 0 {
		return nil, errors.Wrapf(ErrMalformedAnnotation, "unknown classes %q", unknown)
	}
	return lo.Map(names, func(n string, _ int) int {
		id, _ := t.ID(n)
		return id
	}), nil
}

func normalizeClass(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
