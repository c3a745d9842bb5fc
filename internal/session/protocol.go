package session

import (
	"encoding/json"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/engine"
)

// Message is the websocket envelope in both directions. Replies echo the
// Seq of the event that produced them.
type Message struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client events
	TypePointerDown    = "pointer.down"
	TypePointerMove    = "pointer.move"
	TypePointerUp      = "pointer.up"
	TypePointerLeave   = "pointer.leave"
	TypeWheel          = "wheel"
	TypeKeyDown        = "key.down"
	TypeKeyUp          = "key.up"
	TypeSetTool        = "tool.set"
	TypeSetStyle       = "style.set"
	TypeSetZoom        = "zoom.set"
	TypeSetContainer   = "container.set"
	TypeToggleGrid     = "grid.toggle"
	TypeToggleSnap     = "snap.toggle"
	TypeTextOpen       = "text.open"
	TypeTextValue      = "text.value"
	TypeTextCommit     = "text.commit"
	TypeTextCancel     = "text.cancel"
	TypeInsert         = "scene.insert"
	TypeInsertTemplate = "template.insert"
	TypeClear          = "scene.clear"
	TypeUndo           = "undo"
	TypeRedo           = "redo"
	TypeExport         = "export"
	TypeSave           = "save"

	// Server replies
	TypeWelcome  = "welcome"
	TypeState    = "state"
	TypeFrame    = "frame"
	TypeInserted = "inserted"
	TypeExported = "exported"
	TypeSaved    = "saved"
	TypeHost     = "host"
	TypeError    = "error"
)

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type WheelPayload struct {
	DeltaY float64 `json:"deltaY"`
	Mod    bool    `json:"mod"`
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

type ZoomPayload struct {
	Zoom float64 `json:"zoom"`
}

type ContainerPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type TextPayload struct {
	Value string `json:"value"`
}

// InsertPayload carries a partial scene. Ids and styles may be omitted.
type InsertPayload struct {
	Scene json.RawMessage `json:"scene"`
	Label string          `json:"label"`
}

type TemplatePayload struct {
	ID string `json:"id"`
}

type ExportPayload struct {
	Mime    string  `json:"mime"`
	Quality float64 `json:"quality"`
}

type WelcomePayload struct {
	SessionID string         `json:"sessionId"`
	ProjectID string         `json:"projectId"`
	ClientID  string         `json:"clientId"`
	Scene     document.Scene `json:"scene"`
	Status    engine.Status  `json:"status"`
}

type FramePayload struct {
	Revision uint64 `json:"revision"`
	engine.Frame
}

type ExportedPayload struct {
	DataURL string `json:"dataUrl"`
}

type SavedPayload struct {
	SavedAt string `json:"savedAt"`
	Reason  string `json:"reason"`
}

// HostPayload asks the browser host to perform a UI action it owns, such
// as toggling a panel.
type HostPayload struct {
	Action string `json:"action"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	HostToggleShortcuts  = "toggleShortcuts"
	HostToggleProperties = "toggleProperties"
	HostToggleCode       = "toggleCode"
)

func newMessage(typ string, seq int64, payload any) *Message {
	msg := &Message{Type: typ, Seq: seq}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			data, _ = json.Marshal(ErrorPayload{Message: err.Error()})
			msg.Type = TypeError
		}
		msg.Payload = data
	}
	return msg
}
