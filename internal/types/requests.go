package types

// ExecuteRequest is the body of a skill execution call.
type ExecuteRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params"`
	Actor  string                 `json:"actor,omitempty"`
}
