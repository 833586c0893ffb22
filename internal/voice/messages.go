package voice

import (
	"encoding/json"
	"fmt"
)

// Part is one piece of content: text or inline binary data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob is base64 encoded media.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Content is a turn of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// LiveConfig is sent once per connection in the setup frame.
type LiveConfig struct {
	Model             string            `json:"model"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

type GenerationConfig struct {
	ResponseModalities string        `json:"responseModalities"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

type SpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

// Tool groups the function declarations offered to the model.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type FunctionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// FunctionCall is one call requested by the model.
type FunctionCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// FunctionResponse answers the FunctionCall with the same ID.
type FunctionResponse struct {
	ID       string      `json:"id"`
	Response interface{} `json:"response"`
}

type ToolCall struct {
	FunctionCalls []FunctionCall `json:"functionCalls"`
}

type ToolCallCancellation struct {
	IDs []string `json:"ids"`
}

type ServerContent struct {
	ModelTurn *struct {
		Parts []Part `json:"parts"`
	} `json:"modelTurn,omitempty"`
	TurnComplete bool `json:"turnComplete,omitempty"`
	Interrupted  bool `json:"interrupted,omitempty"`
}

// outgoing frames

type setupMessage struct {
	Setup LiveConfig `json:"setup"`
}

type clientContentMessage struct {
	ClientContent struct {
		Turns        []Content `json:"turns"`
		TurnComplete bool      `json:"turnComplete"`
	} `json:"clientContent"`
}

type realtimeInputMessage struct {
	RealtimeInput struct {
		MediaChunks []Blob `json:"mediaChunks"`
	} `json:"realtimeInput"`
}

type toolResponseMessage struct {
	ToolResponse struct {
		FunctionResponses []FunctionResponse `json:"functionResponses"`
	} `json:"toolResponse"`
}

// Kind classifies an incoming frame.
type Kind string

const (
	KindSetupComplete        Kind = "setupComplete"
	KindServerContent        Kind = "serverContent"
	KindToolCall             Kind = "toolCall"
	KindToolCallCancellation Kind = "toolCallCancellation"
	KindUnknown              Kind = "unknown"
)

// Incoming is a decoded server frame. Exactly one field is set for known kinds.
type Incoming struct {
	SetupComplete        *json.RawMessage      `json:"setupComplete,omitempty"`
	ServerContent        *ServerContent        `json:"serverContent,omitempty"`
	ToolCall             *ToolCall             `json:"toolCall,omitempty"`
	ToolCallCancellation *ToolCallCancellation `json:"toolCallCancellation,omitempty"`
}

// Decode parses a frame and reports its kind. Tool calls win over everything else, as
// they reset the pending turn.
func Decode(data []byte) (Kind, Incoming, error) {
	var msg Incoming
	if err := json.Unmarshal(data, &msg); err != nil {
		return KindUnknown, msg, fmt.Errorf("decode live frame: %w", err)
	}
	switch {
	case msg.ToolCall != nil:
		return KindToolCall, msg, nil
	case msg.ToolCallCancellation != nil && msg.ToolCallCancellation.IDs != nil:
		return KindToolCallCancellation, msg, nil
	case msg.SetupComplete != nil:
		return KindSetupComplete, msg, nil
	case msg.ServerContent != nil:
		return KindServerContent, msg, nil
	}
	return KindUnknown, msg, nil
}

// NewLiveConfig builds the base setup: model, response modality, optional prebuilt voice and
// system instruction.
func NewLiveConfig(model, modality, voiceName, instruction string) LiveConfig {
	cfg := LiveConfig{
		Model:            model,
		GenerationConfig: &GenerationConfig{ResponseModalities: modality},
	}
	if voiceName != "" {
		speech := &SpeechConfig{}
		speech.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voiceName
		cfg.GenerationConfig.SpeechConfig = speech
	}
	if instruction != "" {
		cfg.SystemInstruction = &Content{Parts: []Part{{Text: instruction}}}
	}
	return cfg
}
