package audio

import (
	"encoding/base64"
	"os"
	"testing"
	"time"
)

func TestWorkspaceWriteReadClear(t *testing.T) {
	w, err := NewWorkspace(t.TempDir() + "/audio")
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}

	path, err := w.WriteFile("reply_1.mp3", []byte("mp3-bytes"))
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	encoded, err := w.ReadBase64(path)
	if err != nil {
		t.Fatalf("ReadBase64() error = %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if string(decoded) != "mp3-bytes" {
		t.Fatalf("round-tripped artifact = %q", decoded)
	}

	for i := 0; i < 2; i++ {
		if err := w.Clear(); err != nil {
			t.Fatalf("Clear() #%d error = %v", i+1, err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("artifact survived Clear(): %v", err)
	}
	if _, err := os.Stat(w.Dir()); err != nil {
		t.Fatalf("workspace dir removed by Clear(): %v", err)
	}
}

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := SilencePCM16LE(100*time.Millisecond, 16000)
	wav := EncodeWAVPCM16LE(pcm, 16000)

	if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE markers: %q %q", wav[:4], wav[8:12])
	}
	if want := 44 + len(pcm); len(wav) != want {
		t.Fatalf("len(wav) = %d, want %d", len(wav), want)
	}
}
