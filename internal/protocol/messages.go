package protocol

import "time"

// AudioFrame carries PCM audio pushed by the capture helper while a
// session is recording. PCM is little-endian float32 mono.
type AudioFrame struct {
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	PCM        []byte `json:"pcm"`
}

// Transcript announces a finished session on the bus.
type Transcript struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectControlPrefix     = "hisohiso.control"
	SubjectControlActivate   = "hisohiso.control.activate"
	SubjectControlDeactivate = "hisohiso.control.deactivate"
	SubjectControlCancel     = "hisohiso.control.cancel"
	SubjectAudioFrame        = "hisohiso.audio.frame"
	SubjectTranscriptFinal   = "hisohiso.transcript.final"
)
