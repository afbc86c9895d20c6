package sniffer

import (
	"errors"
	"testing"
)

func TestDetectHead(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}

	res, err := DetectHead(jpeg)
	if err != nil || res.Type != TypeJPEG || res.MIME != "image/jpeg" {
		t.Errorf("jpeg: got %+v, %v", res, err)
	}

	res, err = DetectHead(png)
	if err != nil || res.Type != TypePNG {
		t.Errorf("png: got %+v, %v", res, err)
	}

	res, err = DetectHead([]byte("GIF89a......"))
	if err != nil || res.Type != TypeGIF {
		t.Errorf("gif: got %+v, %v", res, err)
	}

	if _, err := DetectHead([]byte("hello world")); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if _, err := DetectHead(nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType for empty input, got %v", err)
	}
}

func TestCanonicalMIME(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":                 "image/jpeg",
		"image/jpg":                  "image/jpeg",
		"IMAGE/PNG":                  "image/png",
		"image/png; charset=binary":  "image/png",
		" application/octet-stream ": "application/octet-stream",
		"":                           "",
	}
	for in, want := range cases {
		if got := CanonicalMIME(in); got != want {
			t.Errorf("CanonicalMIME(%q) = %q, want %q", in, got, want)
		}
	}
}
