package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/frc6135/orgbot/internal/biz/domain"
)

func addKeyword(text string) func(w *domain.KeywordWatch) error {
	return func(w *domain.KeywordWatch) error {
		w.Keywords = append(w.Keywords, domain.Keyword{Text: text})
		return nil
	}
}

func TestWatchUsecase_UpdateAndScan(t *testing.T) {
	ctx := context.Background()
	uc, err := NewWatchUsecase(ctx, newFakeWatchRepo())
	if err != nil {
		t.Fatalf("NewWatchUsecase failed: %v", err)
	}

	if err := uc.Update(ctx, "u1", addKeyword("printer")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	matches := uc.Scan("my printer is busy")
	if len(matches) != 1 || matches[0].UserID != "u1" {
		t.Fatalf("Expected match for u1, got %v", matches)
	}
}

func TestWatchUsecase_ScanFiltersDisabled(t *testing.T) {
	ctx := context.Background()
	uc, err := NewWatchUsecase(ctx, newFakeWatchRepo())
	if err != nil {
		t.Fatalf("NewWatchUsecase failed: %v", err)
	}

	if err := uc.Update(ctx, "u1", addKeyword("printer")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	err = uc.Update(ctx, "u1", func(w *domain.KeywordWatch) error {
		w.On = false
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if matches := uc.Scan("my printer is busy"); len(matches) != 0 {
		t.Errorf("Expected no matches while watching is off, got %v", matches)
	}
}

func TestWatchUsecase_FailedSaveKeepsMatcher(t *testing.T) {
	ctx := context.Background()
	store := newFakeWatchRepo()
	uc, err := NewWatchUsecase(ctx, store)
	if err != nil {
		t.Fatalf("NewWatchUsecase failed: %v", err)
	}
	if err := uc.Update(ctx, "u1", addKeyword("printer")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	store.saveErr = errors.New("disk full")
	if err := uc.Update(ctx, "u1", addKeyword("laser")); err == nil {
		t.Fatal("Expected Update to fail")
	}
	if matches := uc.Scan("laser time"); len(matches) != 0 {
		t.Errorf("Expected failed update to leave the matcher unchanged, got %v", matches)
	}
	if matches := uc.Scan("printer time"); len(matches) != 1 {
		t.Errorf("Expected previous keyword to keep matching, got %v", matches)
	}
}

func TestWatchUsecase_InvalidKeywordRejected(t *testing.T) {
	ctx := context.Background()
	uc, err := NewWatchUsecase(ctx, newFakeWatchRepo())
	if err != nil {
		t.Fatalf("NewWatchUsecase failed: %v", err)
	}

	if err := uc.Update(ctx, "u1", addKeyword("")); err == nil {
		t.Fatal("Expected empty keyword to fail the rebuild")
	}
	if got := uc.Get("u1"); len(got.Keywords) != 0 {
		t.Errorf("Expected rejected update to leave no keywords, got %v", got.Keywords)
	}
}

func TestWatchUsecase_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	uc, err := NewWatchUsecase(ctx, newFakeWatchRepo())
	if err != nil {
		t.Fatalf("NewWatchUsecase failed: %v", err)
	}
	if err := uc.Update(ctx, "u1", addKeyword("printer")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got := uc.Get("u1")
	got.Keywords[0].Text = "changed"
	if uc.Get("u1").Keywords[0].Text != "printer" {
		t.Error("Expected Get to return an independent copy")
	}
}
