package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"
)

var ErrModelUnavailable = errors.New("classifier model unavailable")

type ONNXOptions struct {
	ModelPath         string
	SharedLibraryPath string
	InputName         string
	OutputName        string
	InputSize         int
	Labels            []string
	ApplySoftmax      bool
}

// ONNXClassifier runs the NSFW model through onnxruntime. The model is loaded
// once, on first use, and the session is shared by all callers afterwards.
type ONNXClassifier struct {
	opts ONNXOptions
	log  zerolog.Logger

	once    sync.Once
	loadErr error

	// mu guards session and closed. Classify holds it shared while the model
	// runs, so Close waits for in-flight inferences.
	mu      sync.RWMutex
	session *ort.DynamicAdvancedSession
	closed  bool
}

func NewONNXClassifier(opts ONNXOptions, log zerolog.Logger) *ONNXClassifier {
	if opts.InputSize <= 0 {
		opts.InputSize = 224
	}
	return &ONNXClassifier{opts: opts, log: log}
}

func (c *ONNXClassifier) load() error {
	c.once.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			c.loadErr = fmt.Errorf("%w: classifier closed", ErrModelUnavailable)
			return
		}
		if len(c.opts.Labels) == 0 {
			c.loadErr = fmt.Errorf("%w: no labels configured", ErrModelUnavailable)
			return
		}
		if c.opts.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(c.opts.SharedLibraryPath)
		}
		if !ort.IsInitialized() {
			if err := ort.InitializeEnvironment(); err != nil {
				c.loadErr = fmt.Errorf("%w: init runtime: %v", ErrModelUnavailable, err)
				return
			}
		}
		session, err := ort.NewDynamicAdvancedSession(
			c.opts.ModelPath,
			[]string{c.opts.InputName},
			[]string{c.opts.OutputName},
			nil,
		)
		if err != nil {
			c.loadErr = fmt.Errorf("%w: load %s: %v", ErrModelUnavailable, c.opts.ModelPath, err)
			return
		}
		c.session = session
		c.log.Info().
			Str("model", c.opts.ModelPath).
			Int("input_size", c.opts.InputSize).
			Strs("labels", c.opts.Labels).
			Msg("nsfw model loaded")
	})
	return c.loadErr
}

// Classify scores one image. Tensors live in native memory and are destroyed
// before returning on every path.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) ([]Prediction, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, fmt.Errorf("%w: classifier closed", ErrModelUnavailable)
	}

	size := int64(c.opts.InputSize)
	input, err := ort.NewTensor(ort.NewShape(1, size, size, 3), Preprocess(img, c.opts.InputSize))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(c.opts.Labels))))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer output.Destroy()

	if err := c.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("run model: %w", err)
	}

	raw := output.GetData()
	if len(raw) != len(c.opts.Labels) {
		return nil, fmt.Errorf("model returned %d scores for %d labels", len(raw), len(c.opts.Labels))
	}

	var probs []float64
	if c.opts.ApplySoftmax {
		probs = Softmax(raw)
	} else {
		probs = make([]float64, len(raw))
		for i, v := range raw {
			probs[i] = float64(v)
		}
	}

	preds := make([]Prediction, len(probs))
	for i, p := range probs {
		preds[i] = Prediction{Label: c.opts.Labels[i], Probability: p}
	}
	return preds, nil
}

// Close releases the session and the runtime environment.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Destroy())
		c.session = nil
	}
	if ort.IsInitialized() {
		errs = append(errs, ort.DestroyEnvironment())
	}
	return errors.Join(errs...)
}
