package dto

type MessageDto struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,max=15000"`
}

type ChatRequest struct {
	Messages  []MessageDto `json:"messages" validate:"required,min=1,dive"`
	SessionID string       `json:"session_id" validate:"required,max=64"`
}

// ChatResponse carries the latest assistant message. The interrupt fields are
// set only by the research service while it waits for the user.
type ChatResponse struct {
	Messages      []MessageDto           `json:"messages"`
	SessionID     string                 `json:"session_id"`
	InterruptType string                 `json:"interrupt_type,omitempty"`
	InterruptData map[string]interface{} `json:"interrupt_data,omitempty"`
	InterruptID   string                 `json:"interrupt_id,omitempty"`
}

type NewSessionResponse struct {
	SessionID string `json:"session_id"`
}

type HistoryResponse struct {
	SessionID string       `json:"session_id"`
	Messages  []MessageDto `json:"messages"`
}

type ClearSessionResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
}

// WorkflowResponse is a read-only view of a research session's progress.
type WorkflowResponse struct {
	SessionID       string   `json:"session_id"`
	Question        string   `json:"question"`
	Cycle           int      `json:"cycle"`
	CompletedStages []string `json:"completed_stages"`
	PendingApproval bool     `json:"pending_approval"`
	ApprovalKind    string   `json:"approval_kind,omitempty"`
	ApprovedIDs     []string `json:"approved_document_ids"`
	ArtifactID      string   `json:"current_artifact_id,omitempty"`
}
