// Package tree walks the help center's lazily expanding navigation tree.
//
// Nothing in this package holds an element handle across a mutation of the
// page. Nodes are addressed by their DOM id and re-found on every step.
package tree

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"helptree/internal/remote"
)

// NodeID is the DOM id of a tree node. Ids are built from the ancestor chain
// joined by a fixed separator, so a prefix of an id names an ancestor.
type NodeID string

// Ancestors lists every proper prefix of id, outermost first.
func (id NodeID) Ancestors(sep string) []NodeID {
	if sep == "" || id == "" {
		return nil
	}
	parts := strings.Split(string(id), sep)
	out := make([]NodeID, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, NodeID(strings.Join(parts[:i], sep)))
	}
	return out
}

// PathSpec is an ordered list of folder labels from the tree root.
type PathSpec []string

func ParsePath(subject, sep string) (PathSpec, error) {
	if sep == "" {
		sep = "|"
	}
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("empty subject path")
	}
	raw := strings.Split(subject, sep)
	out := make(PathSpec, 0, len(raw))
	for i, label := range raw {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("subject path %q: empty label at position %d", subject, i+1)
		}
		out = append(out, label)
	}
	return out, nil
}

func (p PathSpec) String() string {
	return strings.Join(p, " > ")
}

// Container is a re-resolvable reference to a subtree. The zero value is
// the tree root.
type Container struct {
	ID NodeID
}

func (c Container) IsRoot() bool { return c.ID == "" }

func (c Container) String() string {
	if c.IsRoot() {
		return "<root>"
	}
	return string(c.ID)
}

// Leaf is an enumerated page node. Label is informational only.
type Leaf struct {
	ID    NodeID `json:"id"`
	Label string `json:"label"`
}

// Selectors describe the tree widget's markup.
type Selectors struct {
	Root            string `mapstructure:"root" json:"root" yaml:"root"`
	Folder          string `mapstructure:"folder" json:"folder" yaml:"folder"`
	Leaf            string `mapstructure:"leaf" json:"leaf" yaml:"leaf"`
	NodeContainer   string `mapstructure:"node_container" json:"node_container" yaml:"node_container"`
	Toggle          string `mapstructure:"toggle" json:"toggle" yaml:"toggle"`
	ToggleSuffix    string `mapstructure:"toggle_suffix" json:"toggle_suffix" yaml:"toggle_suffix"`
	CollapsedAttr   string `mapstructure:"collapsed_attr" json:"collapsed_attr" yaml:"collapsed_attr"`
	CollapsedMarker string `mapstructure:"collapsed_marker" json:"collapsed_marker" yaml:"collapsed_marker"`
	ChildSuffix     string `mapstructure:"child_suffix" json:"child_suffix" yaml:"child_suffix"`
	IDSeparator     string `mapstructure:"id_separator" json:"id_separator" yaml:"id_separator"`
	TriggerAttr     string `mapstructure:"trigger_attr" json:"trigger_attr" yaml:"trigger_attr"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Folder:          "span[isfolder='1']",
		Leaf:            "span[isfolder='0']",
		NodeContainer:   "span[id]",
		Toggle:          "img[id*='_ti']",
		ToggleSuffix:    "_ti",
		CollapsedAttr:   "src",
		CollapsedMarker: "plus.png",
		ChildSuffix:     "_c",
		IDSeparator:     "_",
		TriggerAttr:     "onclick",
	}
}

func (s Selectors) collapsed() remote.Query {
	return remote.CSS(s.Toggle + "[" + s.CollapsedAttr + "*='" + s.CollapsedMarker + "']")
}

// Ready matches once the tree has rendered at least one folder.
func (s Selectors) Ready() remote.Query {
	if s.Root == "" {
		return remote.CSS(s.Folder)
	}
	return remote.CSS(s.Root + " " + s.Folder)
}

var (
	ErrLabelNotFound  = errors.New("label not found")
	ErrCircuitBreaker = errors.New("expansion did not settle")
)

// ResolutionError reports a path label or node id that could not be brought
// into view.
type ResolutionError struct {
	Label string
	ID    NodeID
	Err   error
}

func (e *ResolutionError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("resolve label %q: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("resolve node %s: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ExpansionError is raised when a subtree keeps producing collapsed nodes
// past the pass limit.
type ExpansionError struct {
	Container Container
	Passes    int
	Clicks    int
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("expand %s: %v after %d passes (%d toggles clicked)", e.Container, ErrCircuitBreaker, e.Passes, e.Clicks)
}

func (e *ExpansionError) Unwrap() error { return ErrCircuitBreaker }

// Options configure the walkers.
type Options struct {
	Selectors      Selectors
	ResolveTimeout time.Duration
	// Settle is slept after each expansion click while expanding a subtree.
	Settle    time.Duration
	MaxPasses int
	Logger    *zap.Logger
}

// WithDefaults fills unset selectors and limits.
func (o Options) WithDefaults() Options {
	def := DefaultSelectors()
	s := &o.Selectors
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&s.Folder, def.Folder)
	fill(&s.Leaf, def.Leaf)
	fill(&s.NodeContainer, def.NodeContainer)
	fill(&s.Toggle, def.Toggle)
	fill(&s.ToggleSuffix, def.ToggleSuffix)
	fill(&s.CollapsedAttr, def.CollapsedAttr)
	fill(&s.CollapsedMarker, def.CollapsedMarker)
	fill(&s.ChildSuffix, def.ChildSuffix)
	fill(&s.IDSeparator, def.IDSeparator)
	fill(&s.TriggerAttr, def.TriggerAttr)
	if o.ResolveTimeout <= 0 {
		o.ResolveTimeout = 10 * time.Second
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = 200
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
