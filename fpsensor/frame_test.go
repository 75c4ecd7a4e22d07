package fpsensor

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeCaptureImage(t *testing.T) {
	got, err := Encode(DefaultAddress, CmdCaptureImage, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x03, 0x01, 0x00, 0x05}
	if !bytes.Equal(got, want) {
		t.Fatalf("capture packet % x, want % x", got, want)
	}
}

func TestEncodeStoreTemplate(t *testing.T) {
	got, err := Encode(DefaultAddress, CmdStoreTemplate, []byte{0x01, 0x00, 0x01})
	if err != nil {
		t.Fatal(err)
	}
	// 0x01 + 0x0006 + 0x06 + 0x01 + 0x00 + 0x01
	want := []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x06, 0x06, 0x01, 0x00, 0x01, 0x00, 0x0F}
	if !bytes.Equal(got, want) {
		t.Fatalf("store packet % x, want % x", got, want)
	}
}

func testPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*37 + n)
	}
	return p
}

func TestChecksumRoundTrip(t *testing.T) {
	for n := 0; n <= 255; n++ {
		payload := testPayload(n)
		packet, err := Encode(DefaultAddress, 0x42, payload)
		if err != nil {
			t.Fatalf("len %d: %v", n, err)
		}
		f, err := ParseFrame(packet, DefaultAddress)
		if err != nil {
			t.Fatalf("len %d: %v", n, err)
		}
		if f.Type != PacketCommand {
			t.Fatalf("len %d: type %s", n, f.Type)
		}
		if f.Content[0] != 0x42 || !bytes.Equal(f.Content[1:], payload) {
			t.Fatalf("len %d: content % x", n, f.Content)
		}
	}
}

func TestSingleByteMutationIsDetected(t *testing.T) {
	for _, n := range []int{0, 1, 5, 64, 255} {
		packet, err := Encode(DefaultAddress, CmdSearch, testPayload(n))
		if err != nil {
			t.Fatal(err)
		}
		for i := range packet {
			for _, flip := range []byte{0x01, 0x80, 0xFF} {
				mutated := append([]byte(nil), packet...)
				mutated[i] ^= flip
				if _, err := ParseFrame(mutated, DefaultAddress); !errors.Is(err, ErrMalformed) {
					t.Fatalf("len %d: flipping byte %d with %02x not detected (err %v)", n, i, flip, err)
				}
			}
		}
	}
}

func TestParseFrameRejectsTruncated(t *testing.T) {
	packet, _ := Encode(DefaultAddress, CmdEraseAll, nil)
	if _, err := ParseFrame(packet[:len(packet)-1], DefaultAddress); !errors.Is(err, ErrMalformed) {
		t.Fatalf("truncated packet accepted: %v", err)
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	if _, err := Encode(DefaultAddress, 0x01, make([]byte, MaxCommandPayload+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := Encode(DefaultAddress, 0x01, make([]byte, MaxCommandPayload)); err != nil {
		t.Fatalf("largest payload rejected: %v", err)
	}
}
