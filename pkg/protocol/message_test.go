package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "frame message",
			msgType: TypeFrame,
			data:    FrameData{Source: 1, Width: 640, Height: 480, Format: FrameFormatJPEG},
			wantErr: false,
		},
		{
			name:    "status message",
			msgType: TypeStatus,
			data:    StatusData{RunID: "abc", State: "running", Sources: 3},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeStatus,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestFrameMessage(t *testing.T) {
	jpegData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10} // Fake JPEG header

	msg, err := NewFrameMessage(2, 640, 480, jpegData, 7)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	frameData, err := parsed.GetFrameData()
	if err != nil {
		t.Fatalf("GetFrameData() error = %v", err)
	}
	if frameData.Source != 2 {
		t.Errorf("Source = %v, want 2", frameData.Source)
	}
	if frameData.Width != 640 || frameData.Height != 480 {
		t.Errorf("size = %dx%d, want 640x480", frameData.Width, frameData.Height)
	}
	if frameData.FrameID != 7 {
		t.Errorf("FrameID = %v, want 7", frameData.FrameID)
	}

	decoded, err := frameData.DecodeFrameData()
	if err != nil {
		t.Fatalf("DecodeFrameData() error = %v", err)
	}
	if string(decoded) != string(jpegData) {
		t.Errorf("decoded = %x, want %x", decoded, jpegData)
	}
}

func TestGetFrameData_WrongType(t *testing.T) {
	msg, _ := NewPingMessage("p", 1)
	if _, err := msg.GetFrameData(); err == nil {
		t.Error("GetFrameData() on a ping message should fail")
	}
}

func TestDecodeFrameData_UnsupportedFormat(t *testing.T) {
	f := FrameData{Format: "h264", Data: "AAAA"}
	if _, err := f.DecodeFrameData(); err == nil {
		t.Error("DecodeFrameData() should reject non-jpeg frames")
	}
}

func TestStatusMessage(t *testing.T) {
	status := StatusData{
		RunID:      "run-1",
		State:      "stopped",
		Iteration:  42,
		Sources:    3,
		Detections: 2,
		FPS:        29.5,
		LatencyMs:  33.1,
		JitterMs:   1.2,
		LastError:  "camera 2: fetch: frame unavailable",
	}

	msg, err := NewStatusMessage(status)
	if err != nil {
		t.Fatalf("NewStatusMessage() error = %v", err)
	}
	if msg.Type != TypeStatus {
		t.Errorf("Type = %v, want %v", msg.Type, TypeStatus)
	}

	got, err := msg.GetStatusData()
	if err != nil {
		t.Fatalf("GetStatusData() error = %v", err)
	}
	if *got != status {
		t.Errorf("status = %+v, want %+v", *got, status)
	}
}

func TestPingPongMessage(t *testing.T) {
	sent := time.Now().UnixMilli()
	pingMsg, err := NewPingMessage("test-123", sent)
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" || pingData.Timestamp != sent {
		t.Errorf("ping = %+v, want id test-123 ts %d", pingData, sent)
	}

	pongMsg, err := NewPongMessage(pingData.ID, pingData.Timestamp, sent+15)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.LatencyMs != 15 {
		t.Errorf("LatencyMs = %v, want 15", pongData.LatencyMs)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid json",
			input:   "not json",
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   "{}",
			wantErr: true,
		},
		{
			name:    "valid message",
			input:   `{"type":"ping","ts":1234567890}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageJSON(t *testing.T) {
	msg, _ := NewStatusMessage(StatusData{State: "running"})
	bytes, _ := msg.Bytes()

	var parsed map[string]interface{}
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal as map: %v", err)
	}

	if parsed["type"] != "status" {
		t.Errorf("type = %v, want status", parsed["type"])
	}
	if _, ok := parsed["ts"]; !ok {
		t.Error("ts field should be present")
	}
	if _, ok := parsed["data"]; !ok {
		t.Error("data field should be present")
	}
}

func BenchmarkNewFrameMessage(b *testing.B) {
	jpegData := make([]byte, 100*1024) // 100KB fake JPEG

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewFrameMessage(1, 1920, 1080, jpegData, uint64(i))
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewFrameMessage(1, 1920, 1080, make([]byte, 100*1024), 1)
	bytes, _ := msg.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseMessage(bytes)
	}
}
