package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/novafield/rewind/internal/engine"
	"github.com/novafield/rewind/internal/scene"
	"github.com/novafield/rewind/internal/types"
)

// Scene exposes object-graph mutations. Every mutating tool captures the
// target's pre-mutation state through the engine before touching it.
type Scene struct {
	engine *engine.Engine
}

// NewScene creates the scene skill provider.
func NewScene(eng *engine.Engine) *Scene {
	return &Scene{engine: eng}
}

// Definition returns skill metadata.
func (s *Scene) Definition() types.Skill {
	return types.Skill{
		ID:          "scene",
		Name:        "Scene Graph",
		Description: "Create, inspect, and mutate container objects and their capabilities",
		Category:    types.CategoryScene,
		Capabilities: []string{
			"create",
			"destroy",
			"transform",
			"capabilities",
		},
		Tools: []types.Tool{
			{
				ID:          "scene.object.create",
				Name:        "Create Object",
				Description: "Create a container object, empty or from a shape kind",
				Parameters: []types.Parameter{
					{Name: "parent", Type: "string", Description: "Parent path, defaults to the root", Required: false},
					{Name: "name", Type: "string", Description: "Object name", Required: true},
					{Name: "shape", Type: "string", Description: "Shape kind from the catalog, empty for a bare container", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "scene.object.delete",
				Name:        "Delete Object",
				Description: "Destroy an object and everything attached to it",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Object path", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "scene.object.move",
				Name:        "Move Object",
				Description: "Set an object's position, rotation, and scale",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Object path", Required: true},
					{Name: "x", Type: "number", Description: "Position X", Required: false},
					{Name: "y", Type: "number", Description: "Position Y", Required: false},
					{Name: "z", Type: "number", Description: "Position Z", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "scene.object.inspect",
				Name:        "Inspect Object",
				Description: "Describe an object, its pose, and its capabilities",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Object path", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "scene.object.list",
				Name:        "List Objects",
				Description: "List every object in the scene",
				Returns:     "array",
			},
			{
				ID:          "scene.capability.attach",
				Name:        "Attach Capability",
				Description: "Attach a capability by type name",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Owner object path", Required: true},
					{Name: "type", Type: "string", Description: "Capability type name", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "scene.capability.detach",
				Name:        "Detach Capability",
				Description: "Remove a capability by type name",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Owner object path", Required: true},
					{Name: "type", Type: "string", Description: "Capability type name", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "scene.capability.set_state",
				Name:        "Set Capability State",
				Description: "Overwrite a capability's state from a JSON object",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Owner object path", Required: true},
					{Name: "type", Type: "string", Description: "Capability type name", Required: true},
					{Name: "state", Type: "object", Description: "New state", Required: true},
				},
				Returns: "boolean",
			},
		},
	}
}

// Execute runs a scene tool.
func (s *Scene) Execute(ctx context.Context, toolID string, params map[string]interface{}, sctx *types.Context) (*types.Result, error) {
	switch toolID {
	case "scene.object.create":
		return s.createObject(params)
	case "scene.object.delete":
		return s.deleteObject(params)
	case "scene.object.move":
		return s.moveObject(params)
	case "scene.object.inspect":
		return s.inspectObject(params)
	case "scene.object.list":
		return s.listObjects()
	case "scene.capability.attach":
		return s.attachCapability(params)
	case "scene.capability.detach":
		return s.detachCapability(params)
	case "scene.capability.set_state":
		return s.setCapabilityState(params)
	default:
		return Failure(fmt.Sprintf("unknown tool: %s", toolID)), nil
	}
}

func (s *Scene) createObject(params map[string]interface{}) (*types.Result, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return Failure(err.Error()), nil
	}
	parent := optionalString(params, "parent", "/")
	shape := optionalString(params, "shape", "")

	obj, err := s.engine.Graph.Create(parent, name, shape)
	if err != nil {
		return Failure(err.Error()), nil
	}
	s.engine.Recorder.CaptureCreatedObject(obj)
	return Success(map[string]interface{}{
		"path":  obj.Path(),
		"shape": obj.ShapeKind(),
	}), nil
}

func (s *Scene) deleteObject(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	s.engine.Recorder.CaptureModified(path)
	if err := s.engine.Graph.Destroy(path); err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{"deleted": path}), nil
}

func (s *Scene) moveObject(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	obj, ok := s.engine.Graph.Find(path)
	if !ok {
		return Failure(fmt.Sprintf("object not found: %s", path)), nil
	}
	s.engine.Recorder.CaptureModified(path)

	pose := obj.Pose()
	pose.Position.X = floatParam(params, "x", pose.Position.X)
	pose.Position.Y = floatParam(params, "y", pose.Position.Y)
	pose.Position.Z = floatParam(params, "z", pose.Position.Z)
	if err := s.engine.Graph.SetPose(path, pose); err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{
		"path":     path,
		"position": pose.Position,
	}), nil
}

func (s *Scene) inspectObject(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	obj, ok := s.engine.Graph.Find(path)
	if !ok {
		return Failure(fmt.Sprintf("object not found: %s", path)), nil
	}
	return Success(describeObject(obj)), nil
}

func (s *Scene) listObjects() (*types.Result, error) {
	objects := s.engine.Graph.Objects()
	out := make([]map[string]interface{}, 0, len(objects))
	for _, obj := range objects {
		out = append(out, map[string]interface{}{
			"path":  obj.Path(),
			"shape": obj.ShapeKind(),
		})
	}
	return Success(map[string]interface{}{"objects": out, "count": len(out)}), nil
}

func (s *Scene) attachCapability(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	typeName, err := stringParam(params, "type")
	if err != nil {
		return Failure(err.Error()), nil
	}
	cap, err := s.engine.Graph.Attach(path, typeName)
	if err != nil {
		return Failure(err.Error()), nil
	}
	if owner, ok := s.engine.Graph.Find(path); ok {
		s.engine.Recorder.CaptureCreatedCapability(owner, cap)
	}
	return Success(map[string]interface{}{
		"path": path,
		"type": typeName,
	}), nil
}

func (s *Scene) detachCapability(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	typeName, err := stringParam(params, "type")
	if err != nil {
		return Failure(err.Error()), nil
	}
	s.engine.Recorder.CaptureModified(path + "#" + typeName)
	if err := s.engine.Graph.Detach(path, typeName); err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{"detached": typeName}), nil
}

func (s *Scene) setCapabilityState(params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return Failure(err.Error()), nil
	}
	typeName, err := stringParam(params, "type")
	if err != nil {
		return Failure(err.Error()), nil
	}
	stateMap, ok := params["state"].(map[string]interface{})
	if !ok {
		return Failure("parameter \"state\" must be an object"), nil
	}
	state, err := json.Marshal(stateMap)
	if err != nil {
		return Failure(err.Error()), nil
	}
	s.engine.Recorder.CaptureModified(path + "#" + typeName)
	if err := s.engine.Graph.SetCapabilityState(path, typeName, state); err != nil {
		return Failure(err.Error()), nil
	}
	return Success(map[string]interface{}{"updated": typeName}), nil
}

func describeObject(obj *scene.Object) map[string]interface{} {
	caps := make([]map[string]interface{}, 0, len(obj.Capabilities()))
	for _, cap := range obj.Capabilities() {
		entry := map[string]interface{}{"type": cap.TypeName()}
		if state, err := cap.Serialize(); err == nil {
			var decoded map[string]interface{}
			if json.Unmarshal(state, &decoded) == nil {
				entry["state"] = decoded
			}
		}
		caps = append(caps, entry)
	}
	children := make([]string, 0, len(obj.Children()))
	for _, c := range obj.Children() {
		children = append(children, c.Path())
	}
	return map[string]interface{}{
		"path":         obj.Path(),
		"shape":        obj.ShapeKind(),
		"pose":         obj.Pose(),
		"capabilities": caps,
		"children":     children,
	}
}
