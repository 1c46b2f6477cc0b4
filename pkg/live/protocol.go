package live

// Wire shapes for the duplex voice channel. Outbound messages carry
// exactly one of media or text; the inbound shape is a single message
// type where any subset of fields may be present.

// MediaPayload carries one transport-encoded PCM chunk.
type MediaPayload struct {
	// Data is the base64-encoded PCM16 mono payload.
	Data string `json:"data"`
	// MimeType is "audio/pcm;rate=<hz>". Set on outbound media; the
	// remote endpoint may omit it on inbound audio, whose rate is fixed
	// per session.
	MimeType string `json:"mimeType,omitempty"`
}

// TextPayload carries one transcription fragment.
type TextPayload struct {
	Text string `json:"text"`
}

// clientMessage is the outbound envelope.
type clientMessage struct {
	Media *MediaPayload `json:"media,omitempty"`
	Text  *string       `json:"text,omitempty"`
}

// wireFormat declares one direction's fixed audio shape during setup.
type wireFormat struct {
	MimeType     string `json:"mimeType"`
	SampleRateHz int    `json:"sampleRateHz"`
	Channels     int    `json:"channels"`
}

// setupMessage is sent once, immediately after dial. The first inbound
// frame must acknowledge it before the session is considered open.
type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Instructions string     `json:"instructions,omitempty"`
	InputFormat  wireFormat `json:"inputFormat"`
	OutputFormat wireFormat `json:"outputFormat"`
}

// ServerMessage is the single inbound message shape. Any subset of the
// fields may be present on a given message.
type ServerMessage struct {
	// SetupComplete acknowledges the setup frame. Only ever present on
	// the first message of a session.
	SetupComplete bool `json:"setupComplete,omitempty"`

	// Audio is one chunk of synthesized speech.
	Audio *MediaPayload `json:"audio,omitempty"`

	// InputTranscription is a fragment of the user's speech transcript.
	InputTranscription *TextPayload `json:"inputTranscription,omitempty"`

	// OutputTranscription is a fragment of the model's speech transcript.
	OutputTranscription *TextPayload `json:"outputTranscription,omitempty"`

	// TurnComplete signals that the current conversational turn ended.
	TurnComplete bool `json:"turnComplete,omitempty"`

	// Interrupted signals that not-yet-played audio from the current
	// turn should be discarded (barge-in).
	Interrupted bool `json:"interrupted,omitempty"`
}
