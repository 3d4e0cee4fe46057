package catalog

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/estrenarr/estrenarr/internal/models"
	"github.com/sirupsen/logrus"
)

type stubSource struct {
	name       string
	candidates []Candidate
	err        error
	calls      int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) ListRecent(ctx context.Context, kind models.ContentKind, page int) ([]Candidate, error) {
	s.calls++
	return s.candidates, s.err
}

func (s *stubSource) ListByProviders(ctx context.Context, kind models.ContentKind, providerIDs []int, page int) ([]Candidate, error) {
	s.calls++
	return s.candidates, s.err
}

func testChain(sources ...Lister) *Chain {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewChain(logger, sources...)
}

func TestChainFirstNonEmptySourceWins(t *testing.T) {
	primary := &stubSource{name: "primary", candidates: []Candidate{{SourceID: 1, Kind: models.ContentKindMovie}}}
	secondary := &stubSource{name: "secondary", candidates: []Candidate{{SourceID: 2, Kind: models.ContentKindMovie}}}

	candidates, err := testChain(primary, secondary).ListRecent(context.Background(), models.ContentKindMovie, 1)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].SourceID != 1 {
		t.Errorf("Expected the primary source's candidates, got %v", candidates)
	}
	if secondary.calls != 0 {
		t.Errorf("Expected the secondary source to be skipped, got %d calls", secondary.calls)
	}
}

func TestChainFallsBackOnEmptyPage(t *testing.T) {
	primary := &stubSource{name: "primary"}
	secondary := &stubSource{name: "secondary", candidates: []Candidate{{SourceID: 2, Kind: models.ContentKindMovie}}}

	candidates, err := testChain(primary, secondary).ListRecent(context.Background(), models.ContentKindMovie, 1)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].SourceID != 2 {
		t.Errorf("Expected the secondary source's candidates, got %v", candidates)
	}
}

func TestChainFallsBackOnError(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("rate limited")}
	secondary := &stubSource{name: "secondary", candidates: []Candidate{{SourceID: 2, Kind: models.ContentKindTV}}}

	candidates, err := testChain(primary, secondary).ListByProviders(context.Background(), models.ContentKindTV, []int{8}, 1)
	if err != nil {
		t.Fatalf("Expected the secondary source to cover the failure: %v", err)
	}
	if len(candidates) != 1 || candidates[0].SourceID != 2 {
		t.Errorf("Expected the secondary source's candidates, got %v", candidates)
	}
}

func TestChainReturnsErrorWhenAllSourcesFail(t *testing.T) {
	primary := &stubSource{name: "primary", err: errors.New("down")}
	secondary := &stubSource{name: "secondary", err: errors.New("also down")}

	if _, err := testChain(primary, secondary).ListRecent(context.Background(), models.ContentKindMovie, 1); err == nil {
		t.Fatal("Expected an error when every source fails")
	}
}

func TestChainAllEmptyIsNotAnError(t *testing.T) {
	primary := &stubSource{name: "primary"}
	secondary := &stubSource{name: "secondary"}

	candidates, err := testChain(primary, secondary).ListRecent(context.Background(), models.ContentKindMovie, 1)
	if err != nil {
		t.Fatalf("Expected empty pages to be a clean end of results: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Expected no candidates, got %v", candidates)
	}
}
