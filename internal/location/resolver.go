// Package location resolves the fixed state -> district -> taluka -> village
// hierarchy used by address forms.
package location

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"gopkg.in/yaml.v3"
)

type Level int

const (
	State Level = iota
	District
	Taluka
	Village
)

func (l Level) String() string {
	switch l {
	case State:
		return "state"
	case District:
		return "district"
	case Taluka:
		return "taluka"
	case Village:
		return "village"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel maps a wire name to a Level.
func ParseLevel(s string) (Level, error) {
	for l := State; l <= Village; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: level %q", domain.ErrUnknownField, s)
}

//go:embed india.yaml
var defaultDataset []byte

var ErrInvalidDataset = errors.New("invalid location dataset")

type node struct {
	children []string
	index    map[string]*node
}

func newNode() *node {
	return &node{index: map[string]*node{}}
}

func (n *node) add(name string) (*node, error) {
	if _, dup := n.index[name]; dup {
		return nil, fmt.Errorf("%w: duplicate entry %q", ErrInvalidDataset, name)
	}
	child := newNode()
	n.children = append(n.children, name)
	n.index[name] = child
	return child, nil
}

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	root *node
}

// Default returns the resolver over the embedded dataset.
func Default() *Resolver {
	r, err := Load(bytes.NewReader(defaultDataset))
	if err != nil {
		panic(fmt.Sprintf("embedded location dataset: %v", err))
	}
	return r
}

// LoadFile reads an operator-supplied dataset, falling back to the embedded one
// when path is empty.
func LoadFile(path string) (*Resolver, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open location dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML mapping of states to districts to talukas to village lists.
// Key order in the document is the order ChildrenOf returns.
func Load(r io.Reader) (*Resolver, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("%w: expected a single document", ErrInvalidDataset)
	}
	root := newNode()
	if err := build(root, doc.Content[0], State); err != nil {
		return nil, err
	}
	return &Resolver{root: root}, nil
}

func build(parent *node, n *yaml.Node, level Level) error {
	if level == Village {
		if n.Kind != yaml.SequenceNode {
			return fmt.Errorf("%w: villages must be a list (line %d)", ErrInvalidDataset, n.Line)
		}
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: village must be a name (line %d)", ErrInvalidDataset, item.Line)
			}
			if _, err := parent.add(item.Value); err != nil {
				return err
			}
		}
		return nil
	}

	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: %s entries must be a mapping (line %d)", ErrInvalidDataset, level, n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		child, err := parent.add(n.Content[i].Value)
		if err != nil {
			return err
		}
		if err := build(child, n.Content[i+1], level+1); err != nil {
			return err
		}
	}
	return nil
}

// ChildrenOf lists the choices at level under parentPath, which holds one
// selected value per ancestor level. An unresolvable path yields an empty list.
func (r *Resolver) ChildrenOf(level Level, parentPath ...string) []string {
	if level < State || level > Village || len(parentPath) != int(level) {
		return []string{}
	}
	n := r.root
	for _, key := range parentPath {
		next, ok := n.index[key]
		if !ok {
			return []string{}
		}
		n = next
	}
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out
}

// OnSelect sets level to value and resets every descendant level.
func (r *Resolver) OnSelect(level Level, value string, current domain.Location) domain.Location {
	next := current
	switch level {
	case State:
		next = domain.Location{State: value}
	case District:
		next.District, next.Taluka, next.Village = value, "", ""
	case Taluka:
		next.Taluka, next.Village = value, ""
	case Village:
		next.Village = value
	}
	return next
}

// Valid reports whether value is a legal choice at level given the ancestors
// already selected in current.
func (r *Resolver) Valid(level Level, value string, current domain.Location) bool {
	for _, c := range r.ChildrenOf(level, ancestors(level, current)...) {
		if c == value {
			return true
		}
	}
	return false
}

// Consistent reports whether every populated level is a child of its parent and
// no level is set below an empty one.
func (r *Resolver) Consistent(loc domain.Location) bool {
	values := []string{loc.State, loc.District, loc.Taluka, loc.Village}
	n := r.root
	for i, v := range values {
		if v == "" {
			for _, rest := range values[i+1:] {
				if rest != "" {
					return false
				}
			}
			return true
		}
		next, ok := n.index[v]
		if !ok {
			return false
		}
		n = next
	}
	return true
}

// Trim keeps the longest leading run of levels that resolve and clears the
// rest.
func (r *Resolver) Trim(loc domain.Location) domain.Location {
	values := []string{loc.State, loc.District, loc.Taluka, loc.Village}
	n := r.root
	kept := 0
	for _, v := range values {
		next, ok := n.index[v]
		if v == "" || !ok {
			break
		}
		n = next
		kept++
	}
	var out domain.Location
	levels := []*string{&out.State, &out.District, &out.Taluka, &out.Village}
	for i := 0; i < kept; i++ {
		*levels[i] = values[i]
	}
	return out
}

func ancestors(level Level, loc domain.Location) []string {
	all := []string{loc.State, loc.District, loc.Taluka}
	if level <= State {
		return nil
	}
	if int(level) > len(all) {
		return all
	}
	return all[:level]
}
