// Package ingest validates, normalizes and scores the images of a listing
// submission.
package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"swapshelf/internal/classifier"
	"swapshelf/internal/media/normalize"
	"swapshelf/internal/media/sniffer"
	"swapshelf/internal/moderation"
)

var (
	ErrNoFilesProvided      = errors.New("no image provided")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidFormField     = errors.New("invalid form field")
	ErrClassification       = errors.New("image classification failed")
)

var allowedTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"application/octet-stream": true,
}

// ScoreCache remembers classifier output by image digest.
type ScoreCache interface {
	Get(ctx context.Context, digest string) ([]classifier.Prediction, bool, error)
	Set(ctx context.Context, digest string, preds []classifier.Prediction) error
}

type ImageResult struct {
	Filename string
	Data     []byte
	MIME     string
	Ext      string
	Digest   string
	Scores   map[string]float64
	Risk     float64
}

type Result struct {
	Images []ImageResult
}

func (r Result) RiskScores() []float64 {
	scores := make([]float64, len(r.Images))
	for i, img := range r.Images {
		scores[i] = img.Risk
	}
	return scores
}

type Options struct {
	TempDir      string
	Workers      int
	NeutralLabel string
}

type Pipeline struct {
	classifier classifier.Classifier
	normalizer *normalize.Normalizer
	cache      ScoreCache
	opts       Options
	log        zerolog.Logger
}

// NewPipeline builds a pipeline. cache may be nil.
func NewPipeline(c classifier.Classifier, n *normalize.Normalizer, cache ScoreCache, opts Options, log zerolog.Logger) *Pipeline {
	if opts.NeutralLabel == "" {
		opts.NeutralLabel = "Neutral"
	}
	return &Pipeline{
		classifier: c,
		normalizer: n,
		cache:      cache,
		opts:       opts,
		log:        log,
	}
}

// Process scores every file of the submission. The result holds one entry per
// file, in submission order. Any failing file fails the whole submission.
func (p *Pipeline) Process(ctx context.Context, sub Submission) (Result, error) {
	if len(sub.Files) == 0 {
		return Result{}, ErrNoFilesProvided
	}
	for _, f := range sub.Files {
		if !Allowed(f.ContentType) {
			return Result{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedMediaType, f.ContentType, f.Name)
		}
	}

	images := make([]ImageResult, len(sub.Files))
	g, gctx := errgroup.WithContext(ctx)
	if p.opts.Workers > 0 {
		g.SetLimit(p.opts.Workers)
	}
	for i, f := range sub.Files {
		i, f := i, f
		g.Go(func() error {
			res, err := p.processFile(gctx, f)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			images[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("%w: %v", ErrClassification, err)
	}

	return Result{Images: images}, nil
}

// Allowed reports whether a declared content type may enter the pipeline.
// A missing type is treated as application/octet-stream.
func Allowed(contentType string) bool {
	ct := sniffer.CanonicalMIME(contentType)
	if ct == "" {
		ct = "application/octet-stream"
	}
	return allowedTypes[ct]
}

func (p *Pipeline) processFile(ctx context.Context, f File) (ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return ImageResult{}, err
	}

	data, err := p.spool(f)
	if err != nil {
		return ImageResult{}, err
	}

	norm, err := p.normalizer.Normalize(data)
	if err != nil {
		return ImageResult{}, fmt.Errorf("normalize: %w", err)
	}

	sum := blake2b.Sum256(norm.Data)
	digest := hex.EncodeToString(sum[:])

	preds, err := p.predictions(ctx, digest, norm)
	if err != nil {
		return ImageResult{}, err
	}

	risk, err := moderation.RiskScore(preds, p.opts.NeutralLabel)
	if err != nil {
		return ImageResult{}, err
	}

	scores := make(map[string]float64, len(preds))
	for _, pr := range preds {
		scores[pr.Label] = pr.Probability
	}

	return ImageResult{
		Filename: f.Name,
		Data:     norm.Data,
		MIME:     norm.MIME,
		Ext:      norm.Ext,
		Digest:   digest,
		Scores:   scores,
		Risk:     risk,
	}, nil
}

func (p *Pipeline) predictions(ctx context.Context, digest string, norm normalize.Result) ([]classifier.Prediction, error) {
	if p.cache != nil {
		preds, ok, err := p.cache.Get(ctx, digest)
		if err != nil {
			p.log.Warn().Err(err).Str("digest", digest).Msg("score cache lookup failed")
		} else if ok {
			return preds, nil
		}
	}

	preds, err := p.classifier.Classify(ctx, norm.Image)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, digest, preds); err != nil {
			p.log.Warn().Err(err).Str("digest", digest).Msg("score cache store failed")
		}
	}
	return preds, nil
}

// spool buffers the upload through a private temp file. The file is removed
// before spool returns, whatever the outcome.
func (p *Pipeline) spool(f File) ([]byte, error) {
	if f.Open == nil {
		return nil, errors.New("file has no content")
	}
	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(p.opts.TempDir, TempPattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.log.Warn().Err(err).Str("path", tmp.Name()).Msg("remove temp file failed")
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("read temp file: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	return data, nil
}

// TempPattern names spooled uploads; the temp sweeper matches on it.
const TempPattern = "ingest-*"
