package scene

import "encoding/json"

// Capability is a typed behavior/data unit owned by exactly one object.
// Serialize and Deserialize form the explicit state boundary the engine
// uses for capture and restore; implementations own their wire shape.
type Capability interface {
	TypeName() string
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
}

// Surface controls how an object is drawn.
type Surface struct {
	Color     string  `json:"color"`
	Roughness float64 `json:"roughness"`
	Visible   bool    `json:"visible"`
}

func NewSurface() *Surface {
	return &Surface{Color: "#ffffff", Roughness: 0.5, Visible: true}
}

func (s *Surface) TypeName() string              { return "Surface" }
func (s *Surface) Serialize() ([]byte, error)    { return json.Marshal(s) }
func (s *Surface) Deserialize(data []byte) error { return json.Unmarshal(data, s) }

// Body gives an object physical presence in the simulation.
type Body struct {
	Mass      float64 `json:"mass"`
	Kinematic bool    `json:"kinematic"`
}

func NewBody() *Body {
	return &Body{Mass: 1}
}

func (b *Body) TypeName() string              { return "Body" }
func (b *Body) Serialize() ([]byte, error)    { return json.Marshal(b) }
func (b *Body) Deserialize(data []byte) error { return json.Unmarshal(data, b) }

// ScriptRef binds an object to a source asset that drives its behavior.
// The referenced file is compiled by the host, which is why script sources
// are excluded from byte-level asset backups.
type ScriptRef struct {
	Source  string `json:"source"`
	Enabled bool   `json:"enabled"`
}

func NewScriptRef() *ScriptRef {
	return &ScriptRef{Enabled: true}
}

func (r *ScriptRef) TypeName() string              { return "ScriptRef" }
func (r *ScriptRef) Serialize() ([]byte, error)    { return json.Marshal(r) }
func (r *ScriptRef) Deserialize(data []byte) error { return json.Unmarshal(data, r) }
