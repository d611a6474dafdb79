// Package models defines the data structures for evaluation events.
package models

// TranscriptReady is emitted when a transcription session reaches Done.
type TranscriptReady struct {
	EventType  string `json:"eventType"`
	SessionID  string `json:"sessionId"`
	Language   string `json:"language"`
	Source     string `json:"source"` // text-file, local, remote
	Timestamp  int64  `json:"timestamp"`
	Text       string `json:"text"`
	DurationMs int64  `json:"durationMs"`
}

// VerdictReady is emitted when a transcript has been scored.
type VerdictReady struct {
	EventType      string `json:"eventType"`
	SessionID      string `json:"sessionId"`
	RubricVersion  string `json:"rubricVersion"`
	Language       string `json:"language"`
	Timestamp      int64  `json:"timestamp"`
	OverallScore   int    `json:"overallScore"`
	Classification string `json:"classification"`
}

// SessionFailed is emitted when a session ends in Failed or Cancelled.
type SessionFailed struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Reason    string `json:"reason"`
	Cancelled bool   `json:"cancelled"`
}
