package scene

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novafield/rewind/internal/types"
)

// Object is a node in the live scene graph. It owns an ordered list of
// attached capabilities and zero or more children. Objects are identified
// by their hierarchy path, which is why there is no rename or reparent
// operation here.
type Object struct {
	name      string
	shapeKind string
	pose      types.Pose
	parent    *Object
	children  []*Object
	caps      []Capability
}

func (o *Object) Name() string      { return o.name }
func (o *Object) ShapeKind() string { return o.shapeKind }
func (o *Object) Pose() types.Pose  { return o.pose }

// Path returns the object's absolute hierarchy path, e.g. "/World/Player".
func (o *Object) Path() string {
	if o.parent == nil {
		return "/"
	}
	parent := o.parent.Path()
	if parent == "/" {
		return "/" + o.name
	}
	return parent + "/" + o.name
}

// Children returns the object's children in attach order.
func (o *Object) Children() []*Object {
	out := make([]*Object, len(o.children))
	copy(out, o.children)
	return out
}

// Capabilities returns the attached capabilities in attach order.
func (o *Object) Capabilities() []Capability {
	out := make([]Capability, len(o.caps))
	copy(out, o.caps)
	return out
}

// Capability finds an attached capability by type name.
func (o *Object) Capability(typeName string) (Capability, bool) {
	for _, c := range o.caps {
		if c.TypeName() == typeName {
			return c, true
		}
	}
	return nil, false
}

func (o *Object) child(name string) (*Object, bool) {
	for _, c := range o.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// MutationHook observes an object immediately before it is mutated through
// the graph. Used as a best-effort capture backstop; errors are not
// possible and panics are the hook author's problem.
type MutationHook func(o *Object)

// ErrNotFound is reported through (nil, false) returns; kept as a named
// error for callers that need to wrap lookup failures.
var ErrNotFound = fmt.Errorf("scene: object not found")

// Graph is the live, externally-owned object hierarchy. It is deliberately
// not safe for concurrent mutation: all operations must run on the host's
// single mutation thread.
type Graph struct {
	root     *Object
	catalog  *Catalog
	registry *Registry
	hook     MutationHook

	groupDepth int
	groupNames []string
}

// NewGraph creates an empty graph backed by the given shape catalog and
// capability registry.
func NewGraph(catalog *Catalog, registry *Registry) *Graph {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Graph{root: &Object{}, catalog: catalog, registry: registry}
}

// Catalog returns the shape catalog the graph was built with.
func (g *Graph) Catalog() *Catalog { return g.catalog }

// Registry returns the capability registry the graph was built with.
func (g *Graph) Registry() *Registry { return g.registry }

// SetMutationHook installs the pre-mutation observer. Passing nil removes it.
func (g *Graph) SetMutationHook(h MutationHook) { g.hook = h }

func (g *Graph) notify(o *Object) {
	if g.hook != nil {
		g.hook(o)
	}
}

// Create adds an object under parentPath. An empty shapeKind creates an
// empty container; otherwise the kind must exist in the catalog and the new
// object receives the shape's default capabilities with their default state.
func (g *Graph) Create(parentPath, name, shapeKind string) (*Object, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "#") {
		return nil, fmt.Errorf("invalid object name %q", name)
	}
	parent, ok := g.Find(parentPath)
	if !ok {
		return nil, fmt.Errorf("parent %q: %w", parentPath, ErrNotFound)
	}
	if _, exists := parent.child(name); exists {
		return nil, fmt.Errorf("object %q already exists under %q", name, parent.Path())
	}

	obj := &Object{
		name:      name,
		shapeKind: shapeKind,
		pose:      types.IdentityPose(),
		parent:    parent,
	}
	if shapeKind != "" {
		spec, ok := g.catalog.Lookup(shapeKind)
		if !ok {
			return nil, fmt.Errorf("unknown shape kind %q", shapeKind)
		}
		for _, def := range spec.Defaults {
			cap, err := g.registry.New(def.Type)
			if err != nil {
				return nil, fmt.Errorf("shape %q default: %w", shapeKind, err)
			}
			if len(def.State) > 0 {
				state, err := json.Marshal(def.State)
				if err != nil {
					return nil, fmt.Errorf("shape %q default state: %w", shapeKind, err)
				}
				if err := cap.Deserialize(state); err != nil {
					return nil, fmt.Errorf("shape %q default state: %w", shapeKind, err)
				}
			}
			obj.caps = append(obj.caps, cap)
		}
	}
	parent.children = append(parent.children, obj)
	return obj, nil
}

// Destroy removes the object at path, cascading to its children and all
// attached capabilities.
func (g *Graph) Destroy(path string) error {
	obj, ok := g.Find(path)
	if !ok {
		return fmt.Errorf("destroy %q: %w", path, ErrNotFound)
	}
	if obj.parent == nil {
		return fmt.Errorf("cannot destroy the scene root")
	}
	siblings := obj.parent.children
	for i, c := range siblings {
		if c == obj {
			obj.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	obj.parent = nil
	return nil
}

// Find resolves a hierarchy path to a live object. "" and "/" name the root.
func (g *Graph) Find(path string) (*Object, bool) {
	cur := g.root
	for _, part := range splitPath(path) {
		next, ok := cur.child(part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// SetPose replaces the object's transform. The mutation hook fires before
// the change so a backstop can record the prior state.
func (g *Graph) SetPose(path string, pose types.Pose) error {
	obj, ok := g.Find(path)
	if !ok {
		return fmt.Errorf("set pose %q: %w", path, ErrNotFound)
	}
	g.notify(obj)
	obj.pose = pose
	return nil
}

// Attach instantiates a capability by type name and attaches it to the
// object at path. Attaching a second capability of the same type is an
// error; types are unique per object.
func (g *Graph) Attach(path, typeName string) (Capability, error) {
	obj, ok := g.Find(path)
	if !ok {
		return nil, fmt.Errorf("attach %q: %w", path, ErrNotFound)
	}
	if _, exists := obj.Capability(typeName); exists {
		return nil, fmt.Errorf("object %q already has capability %q", path, typeName)
	}
	cap, err := g.registry.New(typeName)
	if err != nil {
		return nil, err
	}
	obj.caps = append(obj.caps, cap)
	return cap, nil
}

// Detach removes the capability of the given type from the object at path.
func (g *Graph) Detach(path, typeName string) error {
	obj, ok := g.Find(path)
	if !ok {
		return fmt.Errorf("detach %q: %w", path, ErrNotFound)
	}
	for i, c := range obj.caps {
		if c.TypeName() == typeName {
			obj.caps = append(obj.caps[:i], obj.caps[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("object %q has no capability %q", path, typeName)
}

// SetCapabilityState overwrites one capability's state from a serialized
// blob. The mutation hook fires before the change.
func (g *Graph) SetCapabilityState(path, typeName string, state []byte) error {
	obj, ok := g.Find(path)
	if !ok {
		return fmt.Errorf("set state %q: %w", path, ErrNotFound)
	}
	cap, exists := obj.Capability(typeName)
	if !exists {
		return fmt.Errorf("object %q has no capability %q", path, typeName)
	}
	g.notify(obj)
	return cap.Deserialize(state)
}

// Objects returns every object in the graph in depth-first order,
// excluding the root.
func (g *Graph) Objects() []*Object {
	var out []*Object
	var walk func(o *Object)
	walk = func(o *Object) {
		for _, c := range o.children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(g.root)
	return out
}

// UndoGroup opens a host-native undo group and returns its closer. The
// grouping is cosmetic: it labels the batch for the host's own undo UI and
// does not affect the engine's bookkeeping.
func (g *Graph) UndoGroup(name string) func() {
	g.groupDepth++
	g.groupNames = append(g.groupNames, name)
	return func() {
		if g.groupDepth > 0 {
			g.groupDepth--
		}
	}
}

// GroupNames returns the labels of undo groups opened so far.
func (g *Graph) GroupNames() []string {
	out := make([]string, len(g.groupNames))
	copy(out, g.groupNames)
	return out
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
