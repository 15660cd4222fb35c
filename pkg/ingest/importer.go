// Package ingest imports prose into the knowledge base, one sentence stack
// per sentence.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/japaniel/ferdinand/pkg/stacks"
	"github.com/japaniel/ferdinand/pkg/text"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// defaultMaxBody bounds untrusted HTML before readability parses it.
	defaultMaxBody = 10 * 1024 * 1024
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Result summarises one import.
type Result struct {
	Title     string
	Sentences int
	// StackIDs holds the created stacks in sentence order.
	StackIDs []int64
}

// Importer turns articles and plain text into sentence stacks.
type Importer struct {
	Conn     *sqlx.DB
	Analyzer *text.Analyzer
	Logger   *zap.Logger
	Client   *http.Client

	UserAgent    string
	MaxBodyBytes int64

	Workers       int
	BatchSize     int
	FlushInterval time.Duration
	// OnProgress is called after each sentence is queued for writing.
	OnProgress func(current, total int)

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewImporter creates an Importer with default concurrency settings. analyzer
// may be nil, in which case sentences are not checked for content words.
func NewImporter(conn *sqlx.DB, analyzer *text.Analyzer, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		Conn:          conn,
		Analyzer:      analyzer,
		Logger:        logger.Named("ingest"),
		Client:        &http.Client{Timeout: 30 * time.Second},
		UserAgent:     defaultUserAgent,
		MaxBodyBytes:  defaultMaxBody,
		Workers:       4,
		BatchSize:     50,
		FlushInterval: 100 * time.Millisecond,
	}
}

// ImportURL fetches a web page and imports its main article text.
func (im *Importer) ImportURL(ctx context.Context, rawURL string) (*Result, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", im.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := im.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: got status code %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > im.MaxBodyBytes {
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, im.MaxBodyBytes)
	}
	return im.ImportHTML(ctx, resp.Body, pageURL)
}

// ImportHTML extracts the article from an HTML document and imports it.
func (im *Importer) ImportHTML(ctx context.Context, r io.Reader, pageURL *url.URL) (*Result, error) {
	// Read one byte past the limit to tell a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(r, im.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	if int64(len(body)) > im.MaxBodyBytes {
		return nil, fmt.Errorf("html exceeded maximum size limit of %d bytes", im.MaxBodyBytes)
	}

	// Ruby annotations would otherwise be glued onto the words they annotate.
	body = text.SanitizeRuby(body)

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract article: %w", err)
	}
	im.Logger.Info("Extracted article",
		zap.String("title", article.Title),
		zap.Int("chars", len(article.TextContent)))

	res, err := im.ImportText(ctx, article.TextContent)
	if err != nil {
		return nil, err
	}
	res.Title = article.Title
	return res, nil
}

// prepared is a sentence ready to be written. Empty words mean skip.
type prepared struct {
	index int
	words string
}

func (im *Importer) prepare(index int, sentence string) prepared {
	words := strings.Join(strings.Fields(sentence), " ")
	if im.Analyzer != nil && len(im.Analyzer.Words(words)) == 0 {
		words = ""
	}
	return prepared{index: index, words: words}
}

// ImportText splits prose into sentences and creates one stack per sentence,
// in order. Sentences are prepared concurrently and written in batches; if
// any batch fails the import returns its error.
func (im *Importer) ImportText(ctx context.Context, body string) (*Result, error) {
	sentences := text.SplitSentences(body)
	total := len(sentences)
	res := &Result{Sentences: total, StackIDs: []int64{}}
	if total == 0 {
		return res, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := im.Workers
	if workers <= 0 {
		workers = 1
	}
	var wp WorkerPoolInterface
	if im.PoolFactory != nil {
		wp = im.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	wp.Start(ctx)

	bw := NewBatchWriter(im.Conn, im.BatchSize, im.FlushInterval)
	resultCh := make(chan prepared, workers*2)
	doneCh := make(chan error, 1)

	// The consumer restores sentence order before handing writes to the batch
	// writer. StackIDs is only appended to by the committer goroutine.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]prepared)
		next := 0
		var failed error
		for item := range resultCh {
			if failed != nil {
				continue // drain so producers never block
			}
			buffer[item.index] = item
			for {
				p, ok := buffer[next]
				if !ok {
					break
				}
				delete(buffer, next)
				next++
				if p.words != "" {
					words := p.words
					err := bw.Submit(func(ctx context.Context, tx *sqlx.Tx) error {
						id, err := stacks.Create(ctx, tx, words)
						if err != nil {
							return fmt.Errorf("create stack for sentence: %w", err)
						}
						res.StackIDs = append(res.StackIDs, id)
						return nil
					})
					if err != nil {
						failed = err
						cancel()
						break
					}
				}
				if im.OnProgress != nil {
					im.OnProgress(next, total)
				}
			}
		}
		doneCh <- failed
	}()

	var produceErr error
Loop:
	for i, s := range sentences {
		idx, sentence := i, s
		job := func(ctx context.Context) error {
			p := im.prepare(idx, sentence)
			select {
			case resultCh <- p:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if err != ctx.Err() && err != ErrPoolClosed {
				produceErr = err
			}
			break Loop
		}
	}

	// Every job has returned once Close does, so nothing sends on resultCh after this.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh
	writeErr := bw.Close()

	switch {
	case produceErr != nil:
		return nil, produceErr
	case consumerErr != nil:
		return nil, consumerErr
	case writeErr != nil:
		return nil, writeErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if got := len(res.StackIDs); got == 0 && total > 0 {
		im.Logger.Warn("No sentences with words were found", zap.Int("sentences", total))
	}
	batches, _ := bw.Committed()
	im.Logger.Info("Imported sentences",
		zap.Int("sentences", total),
		zap.Int("stacks", len(res.StackIDs)),
		zap.Int64("batches", batches))
	return res, nil
}
