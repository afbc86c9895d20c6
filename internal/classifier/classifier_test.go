package classifier

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	probs := Softmax([]float32{2, 1, 0.1, -3, 5})
	var sum float64
	for _, p := range probs {
		if p < 0 || p > 1 {
			t.Errorf("probability out of range: %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("expected sum 1, got %v", sum)
	}
	if probs[4] <= probs[0] {
		t.Errorf("largest logit should have largest probability: %v", probs)
	}
	if Softmax(nil) != nil {
		t.Error("expected nil for empty logits")
	}
}

func TestPreprocessLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	for x := 0; x < 10; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{255, 0, 51, 255})
		}
	}

	out := Preprocess(img, 8)
	if len(out) != 8*8*3 {
		t.Fatalf("expected %d values, got %d", 8*8*3, len(out))
	}
	near := func(got float32, want float64) bool { return math.Abs(float64(got)-want) < 2.0/255 }
	for i := 0; i < len(out); i += 3 {
		if !near(out[i], 1) || !near(out[i+1], 0) || !near(out[i+2], 0.2) {
			t.Fatalf("unexpected pixel at %d: %v %v %v", i/3, out[i], out[i+1], out[i+2])
		}
	}
}

func TestONNXClassifierRequiresLabels(t *testing.T) {
	c := NewONNXClassifier(ONNXOptions{ModelPath: "missing.onnx"}, zerolog.Nop())
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	_, err := c.Classify(context.Background(), img)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	// The load failure is sticky.
	if _, err := c.Classify(context.Background(), img); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected sticky ErrModelUnavailable, got %v", err)
	}
}

func TestONNXClassifierClosedBeforeFirstUse(t *testing.T) {
	c := NewONNXClassifier(ONNXOptions{ModelPath: "missing.onnx", Labels: []string{"Neutral", "Porn"}}, zerolog.Nop())
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	_, err := c.Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable after Close, got %v", err)
	}
}

func TestONNXClassifierCloseDuringFirstUse(t *testing.T) {
	c := NewONNXClassifier(ONNXOptions{ModelPath: "missing.onnx"}, zerolog.Nop())
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Classify(context.Background(), img); !errors.Is(err, ErrModelUnavailable) {
				t.Errorf("expected ErrModelUnavailable, got %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()
	wg.Wait()
}
